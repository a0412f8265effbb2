package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasnes/wikiviews/model"
)

func TestFlattenViews(t *testing.T) {
	now := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		views     map[string]map[string]int64
		titleToID map[string]int64
		want      []model.DailyView
		wantErr   error
	}{
		{
			name:      "single article single day",
			views:     map[string]map[string]int64{"20240101": {"Apple_Inc.": 100}},
			titleToID: map[string]int64{"Apple_Inc.": 7},
			want: []model.DailyView{
				{SymbolID: 7, Date: "20240101", Views: 100, CreatedDate: now, LastUpdatedDate: now},
			},
		},
		{
			name: "rows are ordered by date then title",
			views: map[string]map[string]int64{
				"20240102": {"Microsoft": 5, "Apple_Inc.": 6},
				"20240101": {"Microsoft": 3},
			},
			titleToID: map[string]int64{"Apple_Inc.": 7, "Microsoft": 9},
			want: []model.DailyView{
				{SymbolID: 9, Date: "20240101", Views: 3, CreatedDate: now, LastUpdatedDate: now},
				{SymbolID: 7, Date: "20240102", Views: 6, CreatedDate: now, LastUpdatedDate: now},
				{SymbolID: 9, Date: "20240102", Views: 5, CreatedDate: now, LastUpdatedDate: now},
			},
		},
		{
			name:      "missing articles are not zero-filled",
			views:     map[string]map[string]int64{"20240101": {}},
			titleToID: map[string]int64{"Apple_Inc.": 7},
			want:      nil,
		},
		{
			name:      "title with spaces matches the canonical form",
			views:     map[string]map[string]int64{"20240101": {"Alphabet Inc.": 42}},
			titleToID: map[string]int64{"Alphabet_Inc.": 3},
			want: []model.DailyView{
				{SymbolID: 3, Date: "20240101", Views: 42, CreatedDate: now, LastUpdatedDate: now},
			},
		},
		{
			name:      "unknown title fails",
			views:     map[string]map[string]int64{"20240101": {"Enron": 1}},
			titleToID: map[string]int64{"Apple_Inc.": 7},
			wantErr:   ErrUnknownTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlattenViews(tt.views, tt.titleToID, now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTitleIndex(t *testing.T) {
	symbols := []model.Symbol{
		{ID: 1, Ticker: "AAPL", WikiTitle: "Apple Inc."},
		{ID: 2, Ticker: "MSFT", WikiTitle: "Microsoft"},
		{ID: 3, Ticker: "GOOG", WikiTitle: "Alphabet_Inc."},
		{ID: 4, Ticker: "GOOGL", WikiTitle: "Alphabet Inc."},
		{ID: 5, Ticker: "BLANK", WikiTitle: "  "},
		{ID: 6, Ticker: "EMPTY", WikiTitle: ""},
	}

	index, titles, duplicates := TitleIndex(symbols)

	assert.Equal(t, map[string]int64{
		"Apple_Inc.":    1,
		"Microsoft":     2,
		"Alphabet_Inc.": 4,
	}, index)
	assert.Equal(t, []string{"Apple_Inc.", "Microsoft", "Alphabet_Inc."}, titles)
	assert.Equal(t, []string{"Alphabet_Inc."}, duplicates)
}
