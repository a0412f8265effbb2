package model

// Symbol is a ticker with the title of its Wikipedia article.
type Symbol struct {
	ID        int64  `csv:"id"`
	Ticker    string `csv:"ticker"`
	WikiTitle string `csv:"wiki_title"`
}
