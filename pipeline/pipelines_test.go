package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasnes/wikiviews/config"
	"github.com/rasnes/wikiviews/load"
	"github.com/rasnes/wikiviews/load/loadtest"
	"github.com/rasnes/wikiviews/utils"
)

const articlePrefix = "/metrics/pageviews/per-article/en.wikipedia/all-access/all-agents/"

func setupTestServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		switch r.URL.Path {
		case articlePrefix + "Apple_Inc./daily/2024010100/2024010300":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items":[
{"project":"en.wikipedia","article":"Apple_Inc.","granularity":"daily","timestamp":"2024010100","access":"all-access","agent":"all-agents","views":100},
{"project":"en.wikipedia","article":"Apple_Inc.","granularity":"daily","timestamp":"2024010200","access":"all-access","agent":"all-agents","views":90}
]}`)
		case articlePrefix + "Microsoft/daily/2024010100/2024010300":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"items":[
{"project":"en.wikipedia","article":"Microsoft","granularity":"daily","timestamp":"2024010300","access":"all-access","agent":"all-agents","views":55}
]}`)
		default:
			t.Logf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"type":"https://mediawiki.org/wiki/HyperSwitch/errors/not_found"}`)
		}
	}))
}

func setupTestConfig(t *testing.T, baseURL string) *config.Config {
	// Read the base config file
	baseConfig, err := os.Open("../config.base.yaml")
	require.NoError(t, err)
	defer baseConfig.Close()

	cfg, err := config.NewConfig(baseConfig, nil, "test")
	require.NoError(t, err)

	cfg.DuckDB.Path = ":memory:"
	cfg.DuckDB.ConnInitFnQueries = []string{utils.SQLPath("db__schema.sql")}
	cfg.Wikimedia.BaseURL = baseURL

	return cfg
}

func writeSymbolsFile(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "symbols.csv")
	content := `id,ticker,wiki_title
7,AAPL,Apple Inc.
8,MSFT,Microsoft
9,GOOG,Alphabet_Inc.
10,NOWIKI,
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPipeline_InsertDailyWikiViews(t *testing.T) {
	server := setupTestServer(t)
	defer server.Close()

	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, nil))

	cfg := setupTestConfig(t, server.URL)
	now := time.Date(2024, 1, 4, 8, 0, 0, 0, time.UTC)

	pipeline, err := NewPipeline(cfg, logger, utils.FixedTimeProvider{Time: now})
	require.NoError(t, err)
	defer pipeline.Close()

	ctx := context.Background()

	nSymbols, err := pipeline.LoadSymbolsFile(ctx, writeSymbolsFile(t))
	require.NoError(t, err)
	assert.Equal(t, 4, nSymbols)

	_, err = pipeline.InsertDailyWikiViews(ctx, "2024-01-01", "01/03/2024")
	require.NoError(t, err)

	db, ok := pipeline.Store.(*load.DuckDB)
	require.True(t, ok)

	query := `
SELECT symbol_id, strftime(views_date, '%Y%m%d') AS views_date, views
FROM daily_wiki_views
ORDER BY views_date, symbol_id;`

	expected := map[string][]string{
		"symbol_id":  {"7", "7", "8"},
		"views_date": {"20240101", "20240102", "20240103"},
		"views":      {"100", "90", "55"},
	}

	results, err := loadtest.GetQueryResults(ctx, db.DB, query)
	require.NoError(t, err)
	assert.Equal(t, expected, results)

	// Running the same range again adds nothing.
	_, err = pipeline.InsertDailyWikiViews(ctx, "20240101", "20240103")
	require.NoError(t, err)

	results, err = loadtest.GetQueryResults(ctx, db.DB, query)
	require.NoError(t, err)
	assert.Equal(t, expected, results)

	stamps, err := loadtest.GetQueryResults(ctx, db.DB,
		"SELECT DISTINCT strftime(created_date, '%Y-%m-%d %H:%M:%S') AS created_date FROM daily_wiki_views;")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-04 08:00:00"}, stamps["created_date"])

	assert.Contains(t, logBuffer.String(), "Inserting daily wikipedia views")
}

func TestPipeline_NoSymbols(t *testing.T) {
	server := setupTestServer(t)
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := setupTestConfig(t, server.URL)

	pipeline, err := NewPipeline(cfg, logger, utils.FixedTimeProvider{Time: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	defer pipeline.Close()

	inserted, err := pipeline.InsertDailyWikiViews(context.Background(), "20240101", "20240103")
	assert.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestNewPipeline_MissingUserAgent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := setupTestConfig(t, "http://localhost")
	cfg.Wikimedia.UserAgent = ""

	_, err := NewPipeline(cfg, logger, nil)
	assert.ErrorContains(t, err, "user_agent")
}

func TestPipeline_LoadSymbolsFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cfg := setupTestConfig(t, "http://localhost")

	pipeline, err := NewPipeline(cfg, logger, nil)
	require.NoError(t, err)
	defer pipeline.Close()

	ctx := context.Background()

	_, err = pipeline.LoadSymbolsFile(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "error reading symbols file")

	_, err = pipeline.LoadSymbolsFile(ctx, writeSymbolsFile(t))
	require.NoError(t, err)

	symbols, err := pipeline.Symbols(ctx)
	require.NoError(t, err)
	require.Len(t, symbols, 4)
	assert.Equal(t, "Apple Inc.", symbols[0].WikiTitle)
	assert.Equal(t, "", symbols[3].WikiTitle)
}
