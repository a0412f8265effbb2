package transform

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rasnes/wikiviews/model"
)

var ErrUnknownTitle = errors.New("article title not found in symbol table")

// CanonicalTitle returns the form of an article title used in pageview URLs and
// responses, with spaces replaced by underscores.
func CanonicalTitle(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}

// FlattenViews turns a date -> title -> views mapping into rows, ordered by date
// then title. Every row is stamped with now. Dates or titles missing from views
// produce no rows. A title that is not in titleToID is an error.
func FlattenViews(views map[string]map[string]int64, titleToID map[string]int64, now time.Time) ([]model.DailyView, error) {
	dates := make([]string, 0, len(views))
	for date := range views {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var rows []model.DailyView
	for _, date := range dates {
		perTitle := views[date]
		titles := make([]string, 0, len(perTitle))
		for title := range perTitle {
			titles = append(titles, title)
		}
		sort.Strings(titles)

		for _, title := range titles {
			id, ok := titleToID[CanonicalTitle(title)]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownTitle, title)
			}
			rows = append(rows, model.DailyView{
				SymbolID:        id,
				Date:            date,
				Views:           perTitle[title],
				CreatedDate:     now,
				LastUpdatedDate: now,
			})
		}
	}

	return rows, nil
}

// TitleIndex maps canonical article titles to symbol ids and returns the
// distinct titles in first-seen order. When two symbols share a title the later
// one wins and the title is reported in duplicates. Blank titles are skipped.
func TitleIndex(symbols []model.Symbol) (index map[string]int64, titles []string, duplicates []string) {
	index = make(map[string]int64, len(symbols))
	for _, s := range symbols {
		title := CanonicalTitle(s.WikiTitle)
		if title == "" {
			continue
		}
		if _, ok := index[title]; ok {
			duplicates = append(duplicates, title)
		} else {
			titles = append(titles, title)
		}
		index[title] = s.ID
	}
	return index, titles, duplicates
}
