// Package models defines data structures shared by the extractor, stores and reports.
package models

import "time"

// Item is a normalized catalog entry. Every content field is always set,
// possibly to its zero value.
type Item struct {
	Title      string    `csv:"title" json:"title"`
	Rating     string    `csv:"rating" json:"rating"`
	Image      string    `csv:"image" json:"image"`
	Price      string    `csv:"price" json:"price"`
	InStock    bool      `csv:"in_stock" json:"in_stock"`
	CapturedAt time.Time `csv:"captured_at" json:"captured_at"`
}

// Captured returns a copy of the item stamped with the persistence time.
func (i Item) Captured(t time.Time) Item {
	i.CapturedAt = t
	return i
}

// PartialItem is what the extractor could read from one fragment.
// A nil field was not present in the markup.
type PartialItem struct {
	Title   *string
	Rating  *string
	Image   *string
	Price   *string
	InStock bool
}

// BatchStatus is the terminal state of one page batch.
type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchEmpty   BatchStatus = "empty"
	BatchFailed  BatchStatus = "failed"
)

// BatchResult holds the outcome of processing one category page.
type BatchResult struct {
	Category      string
	SourceURL     string
	Status        BatchStatus
	ItemCount     int
	StoredCount   int
	StoreFailures int
	ReportPath    string
	Err           error
	ErrorKind     string
	StartTime     time.Time
	EndTime       time.Time
}
