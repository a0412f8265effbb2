package pipeline

import (
	"context"
	"fmt"

	"github.com/rasnes/wikiviews/constants"
	"github.com/rasnes/wikiviews/model"
	"github.com/rasnes/wikiviews/transform"
)

// WikiViews fetches the daily views of every titled symbol in r and returns
// them as rows stamped with the current time.
func (p *Pipeline) WikiViews(ctx context.Context, r transform.DateRange) ([]model.DailyView, error) {
	symbols, err := p.Store.SymbolTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting symbol titles: %w", err)
	}

	titleToID, titles, duplicates := transform.TitleIndex(symbols)
	if len(duplicates) > 0 {
		p.Logger.Warn("Wikipedia title shared by several symbols, the last one wins", "titles", duplicates)
	}

	views, err := p.ViewsClient.ArticleViews(ctx, p.Project, titles, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("error fetching wikipedia views: %w", err)
	}

	rows, err := transform.FlattenViews(views, titleToID, p.timeProvider.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("error flattening wikipedia views: %w", err)
	}

	return rows, nil
}

// InsertDailyWikiViews fetches views between start and end and inserts them,
// skipping (symbol, date) pairs already stored. Empty start or end fall back to
// the lookback window ending now. It returns the number of rows inserted.
func (p *Pipeline) InsertDailyWikiViews(ctx context.Context, start, end string) (int, error) {
	r, err := transform.ResolveDateRange(start, end, p.timeProvider.Now(), p.LookbackDays)
	if err != nil {
		return 0, err
	}

	p.Logger.Info("Inserting daily wikipedia views",
		"start_date", transform.ISODate(r.Start),
		"end_date", transform.ISODate(r.End))

	if r.IsEmpty() {
		p.Logger.Info(fmt.Sprintf("`%s` already up-to-date", constants.DailyViewsTable))
		return 0, nil
	}

	rows, err := p.WikiViews(ctx, r)
	if err != nil {
		return 0, err
	}

	inserted, err := p.Store.InsertDailyViews(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("error inserting daily wikipedia views: %w", err)
	}

	p.Logger.Info("Inserted daily wikipedia views", "rows", len(rows), "inserted", inserted)
	return int(inserted), nil
}
