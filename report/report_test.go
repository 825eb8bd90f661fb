package report

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/books-report/models"
)

func TestRenderEmpty(t *testing.T) {
	out, err := Render(nil, Options{Title: "Books - Travel 2"})
	require.NoError(t, err)

	doc := string(out)
	require.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	require.Contains(t, doc, "</html>")
	require.Contains(t, doc, "Total Books: 0")
	require.Regexp(t, regexp.MustCompile(`<tbody>\s*</tbody>`), doc)
	require.Equal(t, 1, strings.Count(doc, "<tr>"), "only the header row")
}

func TestRenderFallbacks(t *testing.T) {
	items := []models.Item{
		{Title: "", Rating: "", Image: "", Price: "", InStock: false},
	}
	out, err := Render(items, Options{Title: "Fallbacks"})
	require.NoError(t, err)

	doc := string(out)
	require.Contains(t, doc, `<td class="title">N/A</td>`)
	require.Contains(t, doc, `<td>N/A</td>`)
	require.Contains(t, doc, `<td class="price">N/A</td>`)
	require.Contains(t, doc, `<span class="no-image">No Image</span>`)
	require.NotContains(t, doc, "<img")
	require.Contains(t, doc, "<td>No</td>")
	require.Contains(t, doc, "Total Books: 1")
}

func TestRenderPreservesOrder(t *testing.T) {
	items := []models.Item{
		{Title: "Zebra", Rating: "One", Price: "£1.00", InStock: true},
		{Title: "Apple", Rating: "Two", Price: "£2.00"},
		{Title: "Zebra", Rating: "One", Price: "£1.00", InStock: true},
	}
	out, err := Render(items, Options{Title: "Order"})
	require.NoError(t, err)

	doc := string(out)
	require.Equal(t, 4, strings.Count(doc, "<tr>"))
	first := strings.Index(doc, "Zebra")
	second := strings.Index(doc, "Apple")
	require.True(t, first >= 0 && second > first, "rows must keep input order")
	require.Equal(t, 2, strings.Count(doc, `<td class="title">Zebra</td>`), "duplicates are kept")
	require.Contains(t, doc, "<td>Yes</td>")
}

func TestRenderEscapesQuotesInTitle(t *testing.T) {
	items := []models.Item{
		{Title: `He said "hi" & left`, Image: "https://books.toscrape.com/media/cache/a.jpg"},
	}
	out, err := Render(items, Options{Title: "Quotes"})
	require.NoError(t, err)

	doc := string(out)
	require.NotContains(t, doc, `"hi"`)
	require.Contains(t, doc, `alt="He said &#34;hi&#34; &amp; left"`)
	require.Contains(t, doc, `src="https://books.toscrape.com/media/cache/a.jpg"`)
}

func TestRenderRichVariant(t *testing.T) {
	items := []models.Item{
		{Title: "In", Rating: "Five", InStock: true},
		{Title: "Out", Rating: "One", InStock: false},
	}
	out, err := Render(items, Options{Title: "Books Table", Source: "travel.html", Variant: VariantRich})
	require.NoError(t, err)

	doc := string(out)
	require.Contains(t, doc, `<span class="instock">In stock</span>`)
	require.Contains(t, doc, `<span class="outstock">Out of stock</span>`)
	require.Contains(t, doc, `<span class="rating">Five</span>`)
	require.Contains(t, doc, "<code>travel.html</code>")
	require.NotContains(t, doc, "<td>Yes</td>")
}

func TestRenderHeading(t *testing.T) {
	out, err := Render(nil, Options{Title: "Books - Travel 2", Heading: "Travel 2 Books"})
	require.NoError(t, err)
	require.Contains(t, string(out), "<title>Books - Travel 2</title>")
	require.Contains(t, string(out), "<h1>Travel 2 Books</h1>")

	out, err = Render(nil, Options{Title: "Books Table – travel"})
	require.NoError(t, err)
	require.Contains(t, string(out), "<h1>Books Table – travel</h1>")
}

func TestDisplayRating(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Three", expected: "Three"},
		{input: "three", expected: "Three"},
		{input: "two_stars", expected: "Two Stars"},
		{input: "four-half", expected: "Four Half"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, DisplayRating(tt.input))
		})
	}
}

func TestCategoryHeading(t *testing.T) {
	require.Equal(t, "Travel 2", CategoryHeading("travel_2"))
	require.Equal(t, "Mystery 3", CategoryHeading("mystery_3"))
}

func TestWriterWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w, err := NewWriter(dir)
	require.NoError(t, err)

	path, err := w.Write("travel_2", []byte("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "books-travel_2.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(data))

	_, err = w.Write("", nil)
	require.Error(t, err)
}
