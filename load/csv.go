package load

import (
	"fmt"

	"github.com/jszwec/csvutil"

	"github.com/rasnes/wikiviews/model"
)

const csvTimestampLayout = "2006-01-02 15:04:05.000000"

// dailyViewRecord is the CSV shape of a daily view as read by DuckDB's read_csv.
type dailyViewRecord struct {
	SymbolID        int64  `csv:"symbol_id"`
	ViewsDate       string `csv:"views_date"`
	Views           int64  `csv:"views"`
	CreatedDate     string `csv:"created_date"`
	LastUpdatedDate string `csv:"last_updated_date"`
}

// DailyViewsCSV encodes rows as CSV with a header, dates as YYYY-MM-DD and
// timestamps in UTC.
func DailyViewsCSV(rows []model.DailyView) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("received no rows to encode")
	}

	records := make([]dailyViewRecord, 0, len(rows))
	for _, row := range rows {
		date, err := viewsDate(row)
		if err != nil {
			return nil, err
		}
		records = append(records, dailyViewRecord{
			SymbolID:        row.SymbolID,
			ViewsDate:       date.Format("2006-01-02"),
			Views:           row.Views,
			CreatedDate:     row.CreatedDate.UTC().Format(csvTimestampLayout),
			LastUpdatedDate: row.LastUpdatedDate.UTC().Format(csvTimestampLayout),
		})
	}

	data, err := csvutil.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode daily views CSV: %w", err)
	}
	return data, nil
}

// SymbolsCSV encodes symbols as CSV with an id,ticker,wiki_title header.
func SymbolsCSV(symbols []model.Symbol) ([]byte, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("received no symbols to encode")
	}

	data, err := csvutil.Marshal(symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to encode symbols CSV: %w", err)
	}
	return data, nil
}

// ParseSymbolsCSV decodes a CSV with id, ticker and wiki_title columns in any order.
// Extra columns are ignored.
func ParseSymbolsCSV(data []byte) ([]model.Symbol, error) {
	var symbols []model.Symbol
	if err := csvutil.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("failed to decode symbols CSV: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols CSV contains no rows")
	}
	return symbols, nil
}
