package load

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rasnes/wikiviews/model"
)

func TestDailyViewsCSV(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		rows           []model.DailyView
		expectedOutput string
		expectedError  string
	}{
		{
			name: "Single row",
			rows: []model.DailyView{
				{SymbolID: 7, Date: "20240101", Views: 100, CreatedDate: now, LastUpdatedDate: now},
			},
			expectedOutput: `symbol_id,views_date,views,created_date,last_updated_date
7,2024-01-01,100,2024-03-31 12:00:00.000000,2024-03-31 12:00:00.000000
`,
		},
		{
			name: "Timestamps are written in UTC",
			rows: []model.DailyView{
				{
					SymbolID:        1,
					Date:            "20231231",
					Views:           0,
					CreatedDate:     time.Date(2024, 1, 1, 1, 30, 0, 0, time.FixedZone("CET", 3600)),
					LastUpdatedDate: time.Date(2024, 1, 1, 1, 30, 0, 0, time.FixedZone("CET", 3600)),
				},
			},
			expectedOutput: `symbol_id,views_date,views,created_date,last_updated_date
1,2023-12-31,0,2024-01-01 00:30:00.000000,2024-01-01 00:30:00.000000
`,
		},
		{
			name:          "No rows",
			rows:          nil,
			expectedError: "received no rows to encode",
		},
		{
			name: "Invalid date",
			rows: []model.DailyView{
				{SymbolID: 7, Date: "2024-01-01", Views: 100, CreatedDate: now, LastUpdatedDate: now},
			},
			expectedError: `invalid views date "2024-01-01" for symbol 7`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := DailyViewsCSV(tt.rows)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedOutput, string(output))
			}
		})
	}
}

func TestSymbolsCSV(t *testing.T) {
	output, err := SymbolsCSV([]model.Symbol{
		{ID: 7, Ticker: "AAPL", WikiTitle: "Apple_Inc."},
		{ID: 8, Ticker: "T", WikiTitle: "AT&T, Inc."},
	})
	assert.NoError(t, err)
	assert.Equal(t, "id,ticker,wiki_title\n7,AAPL,Apple_Inc.\n8,T,\"AT&T, Inc.\"\n", string(output))

	_, err = SymbolsCSV(nil)
	assert.Error(t, err)
}

func TestParseSymbolsCSV(t *testing.T) {
	tests := []struct {
		name           string
		csvData        string
		expectedOutput []model.Symbol
		expectedError  bool
	}{
		{
			name: "Columns in header order",
			csvData: `id,ticker,wiki_title
7,AAPL,Apple_Inc.
8,MSFT,Microsoft`,
			expectedOutput: []model.Symbol{
				{ID: 7, Ticker: "AAPL", WikiTitle: "Apple_Inc."},
				{ID: 8, Ticker: "MSFT", WikiTitle: "Microsoft"},
			},
		},
		{
			name: "Reordered and extra columns",
			csvData: `ticker,sector,wiki_title,id
AAPL,Technology,Apple Inc.,7`,
			expectedOutput: []model.Symbol{
				{ID: 7, Ticker: "AAPL", WikiTitle: "Apple Inc."},
			},
		},
		{
			name:          "Header only",
			csvData:       "id,ticker,wiki_title\n",
			expectedError: true,
		},
		{
			name: "Non-numeric id",
			csvData: `id,ticker,wiki_title
abc,AAPL,Apple_Inc.`,
			expectedError: true,
		},
		{
			name:          "Empty input",
			csvData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := ParseSymbolsCSV([]byte(tt.csvData))

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedOutput, output)
			}
		})
	}
}
