// Command booktable formats a saved catalog page into a standalone HTML table.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/books-report/models"
	"github.com/aluiziolira/books-report/parser"
	"github.com/aluiziolira/books-report/report"
)

const usage = "Usage: booktable <input_html> [output_html]"

// ErrInputNotFound is returned when the input page does not exist.
var ErrInputNotFound = errors.New("input file not found")

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var mediaBase string
	var verbose bool

	cmd := &cobra.Command{
		Use:           "booktable <input_html> [output_html]",
		Short:         "Render the books of a saved catalog page as an HTML table",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

			if len(args) == 0 {
				fmt.Fprintln(stderr, usage)
				return errors.New("missing input file")
			}
			input := args[0]
			output := ""
			if len(args) > 1 {
				output = args[1]
			}

			base, err := url.Parse(mediaBase)
			if err != nil {
				fmt.Fprintf(stderr, "Invalid media base: %v\n", err)
				return err
			}

			n, path, err := formatFile(input, output, base)
			if err != nil {
				if errors.Is(err, ErrInputNotFound) {
					fmt.Fprintf(stderr, "Input file not found: %s\n", input)
				} else {
					fmt.Fprintf(stderr, "Error: %v\n", err)
				}
				return err
			}
			fmt.Fprintf(stdout, "Wrote %d items to %s\n", n, path)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().StringVar(&mediaBase, "media-base", parser.DefaultMediaBase, "Base URL for relative image locators")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}

// formatFile renders the items found in input and writes the table document.
// An empty output writes <stem>_table.html next to the input.
func formatFile(input, output string, mediaBase *url.URL) (int, string, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, "", fmt.Errorf("%w: %s", ErrInputNotFound, input)
		}
		return 0, "", fmt.Errorf("read %s: %w", input, err)
	}

	partials, err := parser.ExtractPage(bytes.ToValidUTF8(data, nil))
	if err != nil {
		return 0, "", fmt.Errorf("extract %s: %w", input, err)
	}
	items := make([]models.Item, 0, len(partials))
	for _, p := range partials {
		items = append(items, parser.Normalize(p, mediaBase))
	}
	slog.Debug("extracted items", slog.String("input", input), slog.Int("count", len(items)))

	name := filepath.Base(input)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if output == "" {
		output = filepath.Join(filepath.Dir(input), stem+"_table.html")
	}

	doc, err := report.Render(items, report.Options{
		Title:   "Books Table – " + stem,
		Source:  name,
		Variant: report.VariantRich,
	})
	if err != nil {
		return 0, "", fmt.Errorf("render: %w", err)
	}
	if err := os.WriteFile(output, doc, 0o644); err != nil {
		return 0, "", fmt.Errorf("write %s: %w", output, err)
	}
	return len(items), output, nil
}
