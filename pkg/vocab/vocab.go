package vocab

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CSV header names of the vocabulary plan.
const (
	ColLetter              = "letter"
	ColHebrewWord          = "HebrewWord"
	ColHebrewWordWithNikud = "HebrewWordwithNikud"
	ColEnglishTranslation  = "EnglishTranslation"
	ColGermanTranslation   = "GermanTranslation"
)

var requiredColumns = []string{
	ColLetter, ColHebrewWord, ColHebrewWordWithNikud, ColEnglishTranslation, ColGermanTranslation,
}

// Record is one vocabulary entry.
type Record struct {
	Letter              string
	HebrewWord          string
	HebrewWordWithNikud string
	EnglishTranslation  string
	GermanTranslation   string
}

// Source yields records one at a time and returns io.EOF when exhausted.
type Source interface {
	Next() (Record, error)
}

// InputFormatError reports a malformed plan file. Line is 1-based (the header is line 1).
type InputFormatError struct {
	Line   int
	Field  string
	Reason string
	Err    error
}

func (e *InputFormatError) Error() string {
	msg := fmt.Sprintf("input line %d", e.Line)
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InputFormatError) Unwrap() error { return e.Err }

// CSVReader streams Records from a comma separated plan with a header row.
type CSVReader struct {
	r      *csv.Reader
	closer io.Closer
	cols   map[string]int
	line   int
}

// NewCSVReader reads and validates the header. Every required column must be present;
// extra columns are ignored.
func NewCSVReader(r io.Reader) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.Comma = ','
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &InputFormatError{Line: 1, Reason: "missing header row"}
		}
		return nil, &InputFormatError{Line: 1, Reason: "unreadable header", Err: err}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			// Spreadsheet exports often start with a UTF-8 BOM.
			h = strings.TrimPrefix(h, "\ufeff")
		}
		cols[strings.TrimSpace(h)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, &InputFormatError{Line: 1, Field: c, Reason: "missing required column"}
		}
	}
	return &CSVReader{r: cr, cols: cols, line: 1}, nil
}

// OpenCSV opens path and reads its header. Close releases the file.
func OpenCSV(path string) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewCSVReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Next returns the next record or io.EOF.
func (c *CSVReader) Next() (Record, error) {
	row, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		line := c.line + 1
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = pe.Line
		}
		return Record{}, &InputFormatError{Line: line, Reason: "malformed row", Err: err}
	}
	c.line++
	rec := Record{
		Letter:              norm.NFC.String(row[c.cols[ColLetter]]),
		HebrewWord:          norm.NFC.String(row[c.cols[ColHebrewWord]]),
		HebrewWordWithNikud: norm.NFC.String(row[c.cols[ColHebrewWordWithNikud]]),
		EnglishTranslation:  row[c.cols[ColEnglishTranslation]],
		GermanTranslation:   row[c.cols[ColGermanTranslation]],
	}
	if strings.TrimSpace(rec.EnglishTranslation) == "" {
		return Record{}, &InputFormatError{Line: c.line, Field: ColEnglishTranslation, Reason: "empty value"}
	}
	return rec, nil
}

func (c *CSVReader) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// SliceSource serves records from memory.
type SliceSource struct {
	records []Record
	pos     int
}

func NewSliceSource(records ...Record) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Next() (Record, error) {
	if s.pos >= len(s.records) {
		return Record{}, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// Read reports how many records have been handed out.
func (s *SliceSource) Read() int { return s.pos }
