package agl

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "nem12cli/internal/errors"
)

// RowSource yields one header row followed by data rows from a tabular
// usage export. Implementations must be safe to Close after a failed Next.
type RowSource interface {
	// Header returns the first row of the file. It is read eagerly when the
	// source is opened.
	Header() []string

	// Next returns the next data row, or io.EOF when exhausted.
	Next() ([]string, error)

	// Close releases the underlying file handle.
	Close() error
}

// OpenSource opens path as a RowSource, choosing the reader by file
// extension. ".xlsx" opens a spreadsheet source, everything else is
// treated as CSV.
func OpenSource(path string) (RowSource, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return openExcelSource(path)
	}
	return openCSVSource(path)
}

type csvSource struct {
	file   *os.File
	reader *csv.Reader
	header []string
}

func openCSVSource(path string) (*csvSource, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(path)
		}
		return nil, apperrors.NewStorageError("failed to open input file", err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // rows are validated per-field, not per-width
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, apperrors.NewParsingError("input file is empty", nil)
		}
		return nil, apperrors.NewParsingError("failed to read header row", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	return &csvSource{file: file, reader: reader, header: header}, nil
}

func (s *csvSource) Header() []string { return s.header }

func (s *csvSource) Next() ([]string, error) {
	return s.reader.Read()
}

func (s *csvSource) Close() error {
	return s.file.Close()
}
