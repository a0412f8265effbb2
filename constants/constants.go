package constants

const (
	// TmpCSVFile is the name pattern for CSV files staged before a DuckDB bulk load.
	TmpCSVFile = "tmp_*.csv"

	SymbolTable     = "symbol"
	DailyViewsTable = "daily_wiki_views"

	WikipediaProject = "en.wikipedia"
	DefaultLookback  = 30
)
