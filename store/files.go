package store

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aluiziolira/books-report/models"
)

var csvHeader = []string{"title", "rating", "image", "price", "in_stock", "captured_at"}

type csvFile struct {
	file   *os.File
	writer *csv.Writer
	rows   int
}

// CSVStore appends items to <dir>/<category>.csv.
type CSVStore struct {
	dir   string
	mu    sync.Mutex
	files map[string]*csvFile
}

// NewCSVStore creates dir if needed.
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &CSVStore{dir: dir, files: make(map[string]*csvFile)}, nil
}

// Save appends one row and flushes it. The id is "<category>:<row>".
func (s *CSVStore) Save(ctx context.Context, category string, item models.Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("save csv record", err)
	}
	if err := validCategory(category); err != nil {
		return "", unavailable("validate category", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(category)
	if err != nil {
		return "", unavailable("open csv file", err)
	}

	record := []string{
		item.Title,
		item.Rating,
		item.Image,
		item.Price,
		strconv.FormatBool(item.InStock),
		item.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := f.writer.Write(record); err != nil {
		return "", unavailable("write csv record", err)
	}
	f.writer.Flush()
	if err := f.writer.Error(); err != nil {
		return "", unavailable("flush csv record", err)
	}

	f.rows++
	return category + ":" + strconv.Itoa(f.rows), nil
}

func (s *CSVStore) open(category string) (*csvFile, error) {
	if f, ok := s.files[category]; ok {
		return f, nil
	}

	path := filepath.Join(s.dir, category+".csv")
	existing, err := countCSVRows(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	if existing < 0 {
		if err := writer.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			file.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
		existing = 0
	}

	f := &csvFile{file: file, writer: writer, rows: existing}
	s.files[category] = f
	return f, nil
}

// countCSVRows returns the number of data rows, or -1 when the file has no header yet.
func countCSVRows(path string) (int, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return -1, nil
	}
	return len(records) - 1, nil
}

// Close flushes and closes every open category file.
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for category, f := range s.files {
		f.writer.Flush()
		if err := f.writer.Error(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", category, err))
		}
		if err := f.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", category, err))
		}
		delete(s.files, category)
	}
	return errors.Join(errs...)
}

type jsonlFile struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	rows    int
}

// JSONLStore appends items as newline-delimited JSON to <dir>/<category>.jsonl.
type JSONLStore struct {
	dir   string
	mu    sync.Mutex
	files map[string]*jsonlFile
}

// NewJSONLStore creates dir if needed.
func NewJSONLStore(dir string) (*JSONLStore, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &JSONLStore{dir: dir, files: make(map[string]*jsonlFile)}, nil
}

// Save appends one JSON line and flushes it. The id is "<category>:<line>".
func (s *JSONLStore) Save(ctx context.Context, category string, item models.Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("save json record", err)
	}
	if err := validCategory(category); err != nil {
		return "", unavailable("validate category", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.open(category)
	if err != nil {
		return "", unavailable("open json file", err)
	}
	if err := f.encoder.Encode(item); err != nil {
		return "", unavailable("encode json record", err)
	}
	if err := f.writer.Flush(); err != nil {
		return "", unavailable("flush json writer", err)
	}

	f.rows++
	return category + ":" + strconv.Itoa(f.rows), nil
}

func (s *JSONLStore) open(category string) (*jsonlFile, error) {
	if f, ok := s.files[category]; ok {
		return f, nil
	}

	path := filepath.Join(s.dir, category+".jsonl")
	existing, err := countLines(path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	buffer := bufio.NewWriter(file)
	f := &jsonlFile{
		file:    file,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
		rows:    existing,
	}
	s.files[category] = f
	return f, nil
}

func countLines(path string) (int, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	count := 0
	reader := bufio.NewReader(file)
	for {
		_, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		count++
	}
}

// Close flushes buffers and closes every open category file.
func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for category, f := range s.files {
		if err := f.writer.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", category, err))
		}
		if err := f.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", category, err))
		}
		delete(s.files, category)
	}
	return errors.Join(errs...)
}
