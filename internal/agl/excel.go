package agl

import (
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "nem12cli/internal/errors"
)

// excelSource reads rows from the first sheet of an XLSX workbook. Some
// retailers ship the same usage export as a spreadsheet instead of CSV.
type excelSource struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
}

func openExcelSource(path string) (*excelSource, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open spreadsheet", err)
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		file.Close()
		return nil, apperrors.NewParsingError("spreadsheet has no sheets", nil)
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		file.Close()
		return nil, apperrors.NewParsingError("failed to read sheet rows", err)
	}

	if !rows.Next() {
		rows.Close()
		file.Close()
		return nil, apperrors.NewParsingError("input file is empty", rows.Error())
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		file.Close()
		return nil, apperrors.NewParsingError("failed to read header row", err)
	}

	return &excelSource{file: file, rows: rows, header: header}, nil
}

func (s *excelSource) Header() []string { return s.header }

func (s *excelSource) Next() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return s.rows.Columns()
}

func (s *excelSource) Close() error {
	err := s.rows.Close()
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	return err
}
