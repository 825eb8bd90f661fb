// Package parser turns catalog page markup into normalized items.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/books-report/models"
)

const (
	fragmentSelector = ".product_pod"
	inStockText      = "In stock"
)

// ExtractPage returns one partial item per product fragment, in document order.
func ExtractPage(markup []byte) ([]models.PartialItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	fragments := doc.Find(fragmentSelector)
	items := make([]models.PartialItem, 0, fragments.Length())
	fragments.Each(func(_ int, s *goquery.Selection) {
		items = append(items, ExtractItem(s))
	})
	return items, nil
}

// ExtractItem reads the fields of a single product fragment. Missing
// sub-elements yield nil fields; it never fails.
func ExtractItem(s *goquery.Selection) models.PartialItem {
	return models.PartialItem{
		Title:   extractTitle(s),
		Rating:  extractRating(s),
		Image:   extractImage(s),
		Price:   extractPrice(s),
		InStock: extractInStock(s),
	}
}

func extractTitle(s *goquery.Selection) *string {
	anchor := s.Find("h3 > a").First()
	if anchor.Length() == 0 {
		return nil
	}
	if text := anchor.Text(); strings.TrimSpace(text) != "" {
		return &text
	}
	if attr, ok := anchor.Attr("title"); ok && strings.TrimSpace(attr) != "" {
		return &attr
	}
	return nil
}

func extractRating(s *goquery.Selection) *string {
	class, ok := s.Find(".star-rating").First().Attr("class")
	if !ok {
		return nil
	}
	// The first token is the shared "star-rating" marker.
	parts := strings.Fields(class)
	if len(parts) < 2 {
		return nil
	}
	return &parts[1]
}

func extractImage(s *goquery.Selection) *string {
	src, ok := s.Find(".image_container img").First().Attr("src")
	if !ok {
		return nil
	}
	return &src
}

func extractPrice(s *goquery.Selection) *string {
	price := s.Find(".price_color").First()
	if price.Length() == 0 {
		return nil
	}
	text := price.Text()
	return &text
}

func extractInStock(s *goquery.Selection) bool {
	availability := s.Find(".availability")
	if availability.Find(".icon-ok").Length() > 0 {
		return true
	}
	return strings.Contains(availability.Text(), inStockText)
}
