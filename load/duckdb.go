package load

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/marcboeker/go-duckdb"

	"github.com/rasnes/wikiviews/config"
	"github.com/rasnes/wikiviews/constants"
	"github.com/rasnes/wikiviews/model"
	"github.com/rasnes/wikiviews/template"
)

const insertDailyViewsDuckDB = `INSERT OR IGNORE INTO {{.Table}} (symbol_id, views_date, views, created_date, last_updated_date)
SELECT symbol_id, views_date, views, created_date, last_updated_date
FROM read_csv('{{.CsvFile}}', header=true, delim=',', quote='"', escape='"', columns={
    'symbol_id': 'BIGINT',
    'views_date': 'DATE',
    'views': 'BIGINT',
    'created_date': 'TIMESTAMP',
    'last_updated_date': 'TIMESTAMP'
});`

const loadSymbolsDuckDB = `INSERT OR REPLACE INTO {{.Table}} (id, ticker, wiki_title)
SELECT id, ticker, wiki_title
FROM read_csv('{{.CsvFile}}', header=true, delim=',', quote='"', escape='"', columns={
    'id': 'BIGINT',
    'ticker': 'VARCHAR',
    'wiki_title': 'VARCHAR'
});`

type DuckDB struct {
	Logger      *slog.Logger
	DB          *sql.DB
	Connector   *duckdb.Connector
	DBType      string
	SymbolTable string
	ViewsTable  string
}

func NewDuckDB(config *config.Config, logger *slog.Logger) (*DuckDB, error) {
	var path string
	var dbType string
	if strings.HasPrefix(config.DuckDB.Path, "md:") {
		motherduckToken := os.Getenv("MOTHERDUCK_TOKEN")
		if motherduckToken == "" {
			return nil, fmt.Errorf("MOTHERDUCK_TOKEN env variable is not set")
		}
		path = fmt.Sprintf("%s?motherduck_token=%s", config.DuckDB.Path, motherduckToken)
		dbType = ":md:"
	} else if config.DuckDB.Path == "" || config.DuckDB.Path == ":memory:" {
		path = ""
		dbType = ":memory:"
	} else {
		path = config.DuckDB.Path
		dbType = path
	}

	tables := map[string]any{
		"SymbolTable": tableOrDefault(config.Storage.SymbolTable, constants.SymbolTable),
		"ViewsTable":  tableOrDefault(config.Storage.ViewsTable, constants.DailyViewsTable),
	}

	var connInitFn func(driver.ExecerContext) error
	if len(config.DuckDB.ConnInitFnQueries) > 0 {
		connInitFn = func(exec driver.ExecerContext) error {
			for _, path := range config.DuckDB.ConnInitFnQueries {
				query, err := template.ExecuteSqlTemplate(path, tables)
				if err != nil {
					return err
				}

				if _, err := exec.ExecContext(context.Background(), query, nil); err != nil {
					return fmt.Errorf("failed to execute query from file %s: %w", path, err)
				}
			}
			return nil
		}
		logger.Debug("Connection initialization queries", "queries", config.DuckDB.ConnInitFnQueries)
	}

	connector, err := duckdb.NewConnector(path, connInitFn)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(connector)

	switch dbType {
	case ":memory:":
		logger.Info("Connected to DuckDB in-memory database")
	case ":md:":
		logger.Info("Connected to MotherDuck database")
	default:
		logger.Info(fmt.Sprintf("Connected to local DuckDB database at %s", dbType))
	}

	return &DuckDB{
		Logger:      logger,
		DB:          db,
		Connector:   connector,
		DBType:      dbType,
		SymbolTable: tables["SymbolTable"].(string),
		ViewsTable:  tables["ViewsTable"].(string),
	}, nil
}

func tableOrDefault(table, fallback string) string {
	if table == "" {
		return fallback
	}
	return table
}

func (db *DuckDB) Close() {
	db.DB.Close()
	db.Connector.Close()
}

func (db *DuckDB) SymbolTitles(ctx context.Context) ([]model.Symbol, error) {
	return querySymbols(ctx, db.DB, symbolTitlesQuery, db.SymbolTable, false)
}

func (db *DuckDB) Symbols(ctx context.Context) ([]model.Symbol, error) {
	return querySymbols(ctx, db.DB, symbolsQuery, db.SymbolTable, true)
}

func (db *DuckDB) LoadSymbols(ctx context.Context, symbols []model.Symbol) (int64, error) {
	csv, err := SymbolsCSV(symbols)
	if err != nil {
		return 0, err
	}

	res, err := db.LoadCSVWithQuery(ctx, csv, loadSymbolsDuckDB, map[string]any{"Table": db.SymbolTable})
	if err != nil {
		return 0, fmt.Errorf("error loading symbols into %s: %w", db.SymbolTable, err)
	}
	return res.RowsAffected()
}

// InsertDailyViews stages rows in a temporary CSV and inserts them with
// INSERT OR IGNORE, so rows already present for (symbol_id, views_date) are skipped.
func (db *DuckDB) InsertDailyViews(ctx context.Context, rows []model.DailyView) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	csv, err := DailyViewsCSV(rows)
	if err != nil {
		return 0, err
	}

	res, err := db.LoadCSVWithQuery(ctx, csv, insertDailyViewsDuckDB, map[string]any{"Table": db.ViewsTable})
	if err != nil {
		return 0, fmt.Errorf("error inserting daily views into %s: %w", db.ViewsTable, err)
	}
	return res.RowsAffected()
}

// LoadCSVWithQuery loads CSV data using a templated SQL query.
// The query template should use {{.CsvFile}} where the temporary CSV filename should be inserted.
func (db *DuckDB) LoadCSVWithQuery(ctx context.Context, csv []byte, queryTemplate string, params map[string]any) (sql.Result, error) {
	tmpFile, err := createTmpFile(csv)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpFile.Name())

	if params == nil {
		params = make(map[string]any)
	}
	params["CsvFile"] = tmpFile.Name()

	query, err := template.RenderSqlTemplate(queryTemplate, params)
	if err != nil {
		return nil, err
	}

	db.Logger.Debug("Executing DuckDB query", "query", query)

	res, err := db.DB.ExecContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	return res, nil
}

func createTmpFile(csv []byte) (*os.File, error) {
	if len(csv) == 0 {
		return nil, fmt.Errorf("received empty CSV data")
	}

	tmpFile, err := os.CreateTemp("", constants.TmpCSVFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := tmpFile.Write(csv); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("failed to write to temporary file: %w", err)
	}

	// Close the file to flush the data
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return nil, fmt.Errorf("failed to close temporary file: %w", err)
	}

	return tmpFile, nil
}
