package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/rasnes/wikiviews/config"
	"github.com/rasnes/wikiviews/extract"
	"github.com/rasnes/wikiviews/load"
	"github.com/rasnes/wikiviews/model"
	"github.com/rasnes/wikiviews/utils"
)

// ViewsClient is the pageviews source. ArticleViews returns date -> article -> views
// for the inclusive YYYYMMDD range.
type ViewsClient interface {
	ArticleViews(ctx context.Context, project string, articles []string, start, end string) (map[string]map[string]int64, error)
}

type Pipeline struct {
	Store        load.Store
	ViewsClient  ViewsClient
	Logger       *slog.Logger
	Project      string
	LookbackDays int
	timeProvider utils.TimeProvider
}

func NewPipeline(config *config.Config, logger *slog.Logger, timeProvider utils.TimeProvider) (*Pipeline, error) {
	store, err := load.NewStore(config, logger)
	if err != nil {
		return nil, fmt.Errorf("error creating %s store: %w", config.Storage.Driver, err)
	}

	httpClient, err := extract.NewWikimediaClient(config, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("error creating Wikimedia HTTP client: %w", err)
	}

	return newPipeline(store, httpClient, config, logger, timeProvider), nil
}

func newPipeline(store load.Store, client ViewsClient, config *config.Config, logger *slog.Logger, timeProvider utils.TimeProvider) *Pipeline {
	if timeProvider == nil {
		timeProvider = utils.RealTimeProvider{}
	}
	return &Pipeline{
		Store:        store,
		ViewsClient:  client,
		Logger:       logger,
		Project:      config.Wikimedia.Project,
		LookbackDays: config.Wikimedia.LookbackDays,
		timeProvider: timeProvider,
	}
}

func (p *Pipeline) Close() {
	p.Store.Close()
}

// LoadSymbolsFile imports an id,ticker,wiki_title CSV into the symbol table.
func (p *Pipeline) LoadSymbolsFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("error reading symbols file %s: %w", path, err)
	}

	symbols, err := load.ParseSymbolsCSV(data)
	if err != nil {
		return 0, fmt.Errorf("error parsing symbols file %s: %w", path, err)
	}

	if _, err := p.Store.LoadSymbols(ctx, symbols); err != nil {
		return 0, fmt.Errorf("error loading symbols into DB: %w", err)
	}

	p.Logger.Info(fmt.Sprintf("Loaded %d symbols from %s", len(symbols), path))
	return len(symbols), nil
}

func (p *Pipeline) Symbols(ctx context.Context) ([]model.Symbol, error) {
	symbols, err := p.Store.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting symbols: %w", err)
	}
	return symbols, nil
}
