package model

import "time"

// DailyView is one (symbol, date, views) observation as written to daily_wiki_views.
// Date is in the canonical YYYYMMDD form.
type DailyView struct {
	SymbolID        int64
	Date            string
	Views           int64
	CreatedDate     time.Time
	LastUpdatedDate time.Time
}
