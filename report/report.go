// Package report renders normalized items as a standalone HTML table.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aluiziolira/books-report/models"
)

// Missing is shown in place of an empty title, rating or price.
const Missing = "N/A"

//go:embed table.html.tmpl
var tableSource string

var tableTemplate = template.Must(template.New("table").Parse(tableSource))

// Variant selects how stock status is presented.
type Variant int

const (
	// VariantPlain prints Yes/No.
	VariantPlain Variant = iota
	// VariantRich prints styled In stock/Out of stock badges.
	VariantRich
)

// Options describes the document around the rows. An empty Heading
// repeats Title.
type Options struct {
	Title   string
	Heading string
	Source  string
	Variant Variant
}

type row struct {
	Image   string
	Title   string
	Rating  string
	Price   string
	InStock bool
}

type document struct {
	Title   string
	Heading string
	Source  string
	Rich    bool
	Count   int
	Rows    []row
}

// Render produces a complete HTML document listing items in input order.
func Render(items []models.Item, opts Options) ([]byte, error) {
	rows := make([]row, 0, len(items))
	for _, item := range items {
		rows = append(rows, newRow(item))
	}

	doc := document{
		Title:   opts.Title,
		Heading: opts.Heading,
		Source:  opts.Source,
		Rich:    opts.Variant == VariantRich,
		Count:   len(rows),
		Rows:    rows,
	}
	if doc.Heading == "" {
		doc.Heading = doc.Title
	}

	var buf bytes.Buffer
	if err := tableTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}

func newRow(item models.Item) row {
	r := row{
		Image:   item.Image,
		Title:   orMissing(item.Title),
		Rating:  Missing,
		Price:   orMissing(item.Price),
		InStock: item.InStock,
	}
	if item.Rating != "" {
		r.Rating = DisplayRating(item.Rating)
	}
	return r
}

// DisplayRating turns a stored rating token into words, e.g. "two_stars" -> "Two Stars".
func DisplayRating(rating string) string {
	return titleWords(rating)
}

// CategoryHeading turns a category key such as "travel_2" into "Travel 2".
func CategoryHeading(category string) string {
	return titleWords(category)
}

func titleWords(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	// A Caser keeps state, so one per call.
	return cases.Title(language.English).String(s)
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return s
}
