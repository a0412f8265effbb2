package load

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rasnes/wikiviews/config"
	"github.com/rasnes/wikiviews/model"
	"github.com/rasnes/wikiviews/template"
	"github.com/rasnes/wikiviews/transform"
)

// Store is the persistence used by the pipeline and the symbols commands.
type Store interface {
	// SymbolTitles returns the (id, wiki_title) pair of every symbol with a non-blank title.
	SymbolTitles(ctx context.Context) ([]model.Symbol, error)
	Symbols(ctx context.Context) ([]model.Symbol, error)
	// LoadSymbols inserts symbols, replacing any existing symbol with the same id.
	LoadSymbols(ctx context.Context, symbols []model.Symbol) (int64, error)
	// InsertDailyViews bulk inserts rows, skipping rows whose (symbol_id, views_date)
	// already exists. It returns the number of rows inserted.
	InsertDailyViews(ctx context.Context, rows []model.DailyView) (int64, error)
	Close()
}

// NewStore opens the backend selected by storage.driver.
func NewStore(config *config.Config, logger *slog.Logger) (Store, error) {
	var store Store
	var err error
	switch config.Storage.Driver {
	case "", "duckdb":
		store, err = NewDuckDB(config, logger)
	case "mysql":
		store, err = NewMySQL(config, logger)
	case "postgres":
		store, err = NewPostgres(config, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

const (
	symbolTitlesQuery = "SELECT id, wiki_title FROM {{.Table}} WHERE NULLIF(TRIM(wiki_title), '') IS NOT NULL ORDER BY id"
	symbolsQuery      = "SELECT id, COALESCE(ticker, ''), COALESCE(wiki_title, '') FROM {{.Table}} ORDER BY id"
)

func querySymbols(ctx context.Context, db *sql.DB, queryTemplate, table string, withTicker bool) ([]model.Symbol, error) {
	query, err := template.RenderSqlTemplate(queryTemplate, map[string]any{"Table": table})
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []model.Symbol
	for rows.Next() {
		var s model.Symbol
		if withTicker {
			err = rows.Scan(&s.ID, &s.Ticker, &s.WikiTitle)
		} else {
			err = rows.Scan(&s.ID, &s.WikiTitle)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol row: %w", err)
		}
		symbols = append(symbols, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over symbol rows: %w", err)
	}

	return symbols, nil
}

// viewsDate parses the canonical date of a row into a calendar date.
func viewsDate(row model.DailyView) (time.Time, error) {
	date, err := time.Parse(transform.CanonicalLayout, row.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid views date %q for symbol %d: %w", row.Date, row.SymbolID, err)
	}
	return date, nil
}
