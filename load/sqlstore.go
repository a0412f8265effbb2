package load

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/rasnes/wikiviews/config"
	"github.com/rasnes/wikiviews/constants"
	"github.com/rasnes/wikiviews/model"
	"github.com/rasnes/wikiviews/template"
)

// dialect holds the statements that differ between the database/sql backends.
type dialect struct {
	name             string
	insertDailyViews string
	upsertSymbol     string
}

var mysqlDialect = dialect{
	name: "mysql",
	insertDailyViews: `INSERT IGNORE INTO {{.Table}} (symbol_id, views_date, views, created_date, last_updated_date)
VALUES (?, ?, ?, ?, ?)`,
	upsertSymbol: `INSERT INTO {{.Table}} (id, ticker, wiki_title) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE ticker = VALUES(ticker), wiki_title = VALUES(wiki_title)`,
}

var postgresDialect = dialect{
	name: "postgres",
	insertDailyViews: `INSERT INTO {{.Table}} (symbol_id, views_date, views, created_date, last_updated_date)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING`,
	upsertSymbol: `INSERT INTO {{.Table}} (id, ticker, wiki_title) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET ticker = EXCLUDED.ticker, wiki_title = EXCLUDED.wiki_title`,
}

// SQLStore is a Store over a database/sql server backend (MySQL/MariaDB or PostgreSQL).
type SQLStore struct {
	Logger      *slog.Logger
	DB          *sql.DB
	SymbolTable string
	ViewsTable  string
	dialect     dialect
}

// mysqlDSN builds the go-sql-driver DSN. The password comes from MYSQL_PASSWORD.
func mysqlDSN(cfg config.MySQLConfig, password string) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	c.DBName = cfg.DBName
	c.ParseTime = true
	return c.FormatDSN()
}

func NewMySQL(config *config.Config, logger *slog.Logger) (*SQLStore, error) {
	if config.MySQL.Host == "" || config.MySQL.DBName == "" {
		return nil, fmt.Errorf("mysql.host and mysql.dbname must be set for the mysql storage driver")
	}
	port := config.MySQL.Port
	if port == "" {
		port = "3306"
	}
	mysqlConfig := config.MySQL
	mysqlConfig.Port = port

	db, err := sql.Open("mysql", mysqlDSN(mysqlConfig, os.Getenv("MYSQL_PASSWORD")))
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	store, err := newSQLStore(db, mysqlDialect, config, logger)
	if err != nil {
		return nil, err
	}
	logger.Info(fmt.Sprintf("Connected to MySQL database %s at %s", config.MySQL.DBName, config.MySQL.Host))
	return store, nil
}

func NewPostgres(config *config.Config, logger *slog.Logger) (*SQLStore, error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		return nil, fmt.Errorf("DATABASE_URL env variable is not set")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	store, err := newSQLStore(db, postgresDialect, config, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to PostgreSQL database")
	return store, nil
}

func newSQLStore(db *sql.DB, d dialect, config *config.Config, logger *slog.Logger) (*SQLStore, error) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.name, err)
	}

	return &SQLStore{
		Logger:      logger,
		DB:          db,
		SymbolTable: tableOrDefault(config.Storage.SymbolTable, constants.SymbolTable),
		ViewsTable:  tableOrDefault(config.Storage.ViewsTable, constants.DailyViewsTable),
		dialect:     d,
	}, nil
}

func (s *SQLStore) Close() {
	s.DB.Close()
}

func (s *SQLStore) SymbolTitles(ctx context.Context) ([]model.Symbol, error) {
	return querySymbols(ctx, s.DB, symbolTitlesQuery, s.SymbolTable, false)
}

func (s *SQLStore) Symbols(ctx context.Context) ([]model.Symbol, error) {
	return querySymbols(ctx, s.DB, symbolsQuery, s.SymbolTable, true)
}

func (s *SQLStore) LoadSymbols(ctx context.Context, symbols []model.Symbol) (int64, error) {
	args := make([][]any, 0, len(symbols))
	for _, sym := range symbols {
		args = append(args, []any{sym.ID, sym.Ticker, sym.WikiTitle})
	}
	return s.execMany(ctx, s.dialect.upsertSymbol, s.SymbolTable, args)
}

// InsertDailyViews inserts all rows in one transaction. Rows that hit the
// (symbol_id, views_date) key are skipped by the database.
func (s *SQLStore) InsertDailyViews(ctx context.Context, rows []model.DailyView) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	args := make([][]any, 0, len(rows))
	for _, row := range rows {
		date, err := viewsDate(row)
		if err != nil {
			return 0, err
		}
		args = append(args, []any{row.SymbolID, date, row.Views, row.CreatedDate.UTC(), row.LastUpdatedDate.UTC()})
	}
	return s.execMany(ctx, s.dialect.insertDailyViews, s.ViewsTable, args)
}

// execMany runs one prepared statement per argument set inside a single
// transaction and returns the summed rows affected.
func (s *SQLStore) execMany(ctx context.Context, queryTemplate, table string, args [][]any) (int64, error) {
	query, err := renderStatement(queryTemplate, table)
	if err != nil {
		return 0, err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction on %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement on %s: %w", table, err)
	}
	defer stmt.Close()

	var affected int64
	for _, a := range args {
		res, err := stmt.ExecContext(ctx, a...)
		if err != nil {
			return 0, fmt.Errorf("failed to execute statement on %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("error getting rows affected: %w", err)
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction on %s: %w", table, err)
	}

	s.Logger.Debug("Executed batch", "table", table, "statements", len(args), "rows_affected", affected)
	return affected, nil
}

func renderStatement(queryTemplate, table string) (string, error) {
	return template.RenderSqlTemplate(queryTemplate, map[string]any{"Table": table})
}
