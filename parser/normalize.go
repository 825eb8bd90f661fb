package parser

import (
	"net/url"
	"strings"

	"github.com/aluiziolira/books-report/models"
)

// NoTitle replaces a title the extractor could not find.
const NoTitle = "No Title Available"

// DefaultMediaBase is where catalog cover images are served from.
const DefaultMediaBase = "https://books.toscrape.com/media/"

// Normalize fills defaults for absent fields and resolves the image
// locator against mediaBase.
func Normalize(p models.PartialItem, mediaBase *url.URL) models.Item {
	title := NoTitle
	if p.Title != nil {
		if trimmed := strings.TrimSpace(*p.Title); trimmed != "" {
			title = trimmed
		}
	}

	return models.Item{
		Title:   title,
		Rating:  strings.TrimSpace(deref(p.Rating)),
		Image:   ResolveImage(deref(p.Image), mediaBase),
		Price:   strings.TrimSpace(deref(p.Price)),
		InStock: p.InStock,
	}
}

// ResolveImage returns src unchanged when it is already absolute. A relative
// locator that walks up to "media/" loses that prefix; the result is then
// resolved against mediaBase.
func ResolveImage(src string, mediaBase *url.URL) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	if ref.IsAbs() || mediaBase == nil {
		return src
	}
	if ref.Host != "" {
		return mediaBase.ResolveReference(ref).String()
	}

	// Drop the walk-up only when it leads into "media/".
	rel := src
	rest := src
	for strings.HasPrefix(rest, "../") || strings.HasPrefix(rest, "./") {
		rest = strings.TrimPrefix(strings.TrimPrefix(rest, "../"), "./")
	}
	if strings.HasPrefix(rest, "media/") {
		rel = strings.TrimPrefix(rest, "media/")
	}

	resolved, err := mediaBase.Parse(rel)
	if err != nil {
		return src
	}
	return resolved.String()
}

// RatingToNumeric converts the textual rating to a numeric scale.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "Zero":
		return 0
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
