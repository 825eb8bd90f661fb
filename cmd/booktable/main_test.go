package main

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aluiziolira/books-report/parser"
)

const page = `<html><body><ol class="row">
<li><article class="product_pod">
  <div class="image_container"><img src="../../../../media/cache/aa/bb/cover.jpg" alt="x"></div>
  <p class="star-rating Four"></p>
  <h3><a href="x/index.html" title="Full Journey">Journey</a></h3>
  <p class="price_color">£23.21</p>
  <p class="instock availability"><i class="icon-ok"></i> In stock</p>
</article></li>
<li><article class="product_pod">
  <p class="star-rating"></p>
  <p class="instock availability">Out of stock</p>
</article></li>
</ol></body></html>`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNoArgumentsPrintsUsage(t *testing.T) {
	stdout, stderr, err := execute(t)
	require.Error(t, err)
	require.Empty(t, stdout)
	require.Contains(t, stderr, usage)
}

func TestMissingInputWritesNothing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "absent.html")

	_, stderr, err := execute(t, input)
	require.ErrorIs(t, err, ErrInputNotFound)
	require.Contains(t, stderr, "Input file not found: "+input)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDefaultOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "travel.html")
	require.NoError(t, os.WriteFile(input, []byte(page), 0o644))

	stdout, _, err := execute(t, input)
	require.NoError(t, err)

	output := filepath.Join(dir, "travel_table.html")
	require.Equal(t, "Wrote 2 items to "+output+"\n", stdout)

	doc, err := os.ReadFile(output)
	require.NoError(t, err)
	html := string(doc)
	require.Contains(t, html, "Books Table – travel")
	require.Contains(t, html, "travel.html")
	require.Contains(t, html, "https://books.toscrape.com/media/cache/aa/bb/cover.jpg")
	require.Contains(t, html, "Journey")
	require.Contains(t, html, "No Title Available")
	require.Contains(t, html, "No Image")
	require.Contains(t, html, "Total Books: 2")
	require.Equal(t, 3, strings.Count(html, "<tr"))
}

func TestExplicitOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "page.html")
	output := filepath.Join(dir, "custom.html")
	require.NoError(t, os.WriteFile(input, []byte(page), 0o644))

	stdout, _, err := execute(t, input, output)
	require.NoError(t, err)
	require.Equal(t, "Wrote 2 items to "+output+"\n", stdout)
	require.FileExists(t, output)
	require.NoFileExists(t, filepath.Join(dir, "page_table.html"))
}

func TestInvalidUTF8IsDropped(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "broken.html")
	markup := strings.Replace(page, "Journey</a>", "Jour\xffney</a>", 1)
	require.NoError(t, os.WriteFile(input, []byte(markup), 0o644))

	n, output, err := formatFile(input, "", mustBase(t))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	doc, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Contains(t, string(doc), "Journey")
}

func TestEmptyPageStillWritesDocument(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(input, []byte("<html><body></body></html>"), 0o644))

	stdout, _, err := execute(t, input)
	require.NoError(t, err)
	require.Contains(t, stdout, "Wrote 0 items to ")

	doc, err := os.ReadFile(filepath.Join(dir, "empty_table.html"))
	require.NoError(t, err)
	require.Contains(t, string(doc), "Total Books: 0")
}

func mustBase(t *testing.T) *url.URL {
	t.Helper()
	base, err := url.Parse(parser.DefaultMediaBase)
	require.NoError(t, err)
	return base
}
