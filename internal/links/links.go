// Package links reads the bell link sheet and rotates through it.
//
// A sheet is a single-column file of media links: csv, tsv or a plain
// list, one URL per row. Extra columns are ignored, rows without a URL
// (headers, comments) are skipped and counted.
package links

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for sheet loading.
var (
	// ErrLinksNotFound is returned when the links file does not exist.
	ErrLinksNotFound = errors.New("links file not found")
	// ErrLinksPermission is returned when the links file cannot be read due to permissions.
	ErrLinksPermission = errors.New("permission denied reading links file")
	// ErrLinksEmpty is returned when the links file contains no URLs.
	ErrLinksEmpty = errors.New("links file contains no URLs")
)

// SheetError wraps sheet errors with the file path.
type SheetError struct {
	Path string
	Err  error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Path)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError creates a SheetError with the given path and error.
func NewSheetError(path string, err error) *SheetError {
	return &SheetError{Path: path, Err: err}
}

// Sheet holds the parsed links, in file order.
type Sheet struct {
	// Path is the file the sheet was read from.
	Path string
	// URLs are the links, first column, file order.
	URLs []string
	// SkippedRows counts non-blank rows without a URL.
	SkippedRows int
	// TotalRows counts every non-blank row.
	TotalRows int
}

// Open reads a link sheet. The extension picks the format: .csv and
// .tsv go through a record reader, anything else is read line by line.
//
// Errors returned:
//   - ErrLinksNotFound: file does not exist
//   - ErrLinksPermission: cannot read file due to permissions
//   - ErrLinksEmpty: file contains no URLs (only headers/comments)
func Open(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapSheetError(path, err)
	}
	defer f.Close()

	s := &Sheet{Path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = s.readRecords(f, ',')
	case ".tsv":
		err = s.readRecords(f, '\t')
	default:
		err = s.readLines(f)
	}
	if err != nil {
		return nil, NewSheetError(path, err)
	}
	if len(s.URLs) == 0 {
		return s, NewSheetError(path, ErrLinksEmpty)
	}
	return s, nil
}

func (s *Sheet) readRecords(r io.Reader, comma rune) error {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(record) == 0 {
			continue
		}
		s.take(record[0])
	}
}

func (s *Sheet) readLines(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		s.take(line)
	}
	return nil
}

// take records one cell: blank cells vanish, URLs are collected,
// everything else (headers, comments) is counted as skipped.
func (s *Sheet) take(cell string) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return
	}
	s.TotalRows++
	if !looksLikeURL(cell) {
		s.SkippedRows++
		return
	}
	s.URLs = append(s.URLs, cell)
}

func looksLikeURL(cell string) bool {
	if !strings.Contains(cell, "://") {
		return false
	}
	u, err := url.Parse(cell)
	return err == nil && u.Scheme != ""
}

// wrapSheetError converts OS-level errors to domain-specific errors.
func wrapSheetError(path string, err error) error {
	if os.IsNotExist(err) {
		return NewSheetError(path, ErrLinksNotFound)
	}
	if os.IsPermission(err) {
		return NewSheetError(path, ErrLinksPermission)
	}
	return NewSheetError(path, err)
}
