// Package parsers reads and writes the two record sets a ledger is built
// from: the bank's import snapshot and the maintained current ledger.
//
// Key features:
//   - Semicolon-delimited text in UTF-8 or Windows-1252
//   - XLSX workbooks (first sheet) as exported by the bank
//   - Day-month-year dates and decimal-comma amounts via Codec
//   - Atomic writes with an optional .bak copy of the previous file
//
// Example usage:
//
//	parser, err := parsers.NewLedgerParser(parsers.DefaultParseConfig())
//	incoming, err := parser.LoadImport(ctx, "export.xlsx")
//	current, err := parser.LoadCurrent(ctx, "ledger.csv")
//
// Malformed input always fails the whole file; no partial ledger is returned.
package parsers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"ledgermerge/pkg/errors"
	"ledgermerge/pkg/logger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BaseParser provides record-level reading shared by the ledger parsers
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("base_parser")
	log.WithFields(logger.Fields{
		"delimiter":         string(config.Delimiter),
		"encoding":          config.Encoding,
		"validate_encoding": config.ValidateEncoding,
	}).Debug("Created base parser")

	return &BaseParser{
		config: config,
		logger: log,
	}
}

// ReadRecords reads every row of a ledger file, choosing the reader from
// the file extension: .xlsx and .xlsm are workbooks, anything else is
// delimited text.
func (bp *BaseParser) ReadRecords(ctx context.Context, filePath string, encoding Encoding) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.InternalError(errors.CodeCancelled, "read_records", err)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx", ".xlsm":
		return bp.ReadXLSX(filePath)
	default:
		return bp.ReadCSV(filePath, encoding)
	}
}

// openFile opens a file, mapping OS errors to file errors
func (bp *BaseParser) openFile(filePath string) (*os.File, error) {
	bp.logger.WithField("file_path", filePath).Debug("Opening file")

	file, err := os.Open(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open file")

		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	return file, nil
}

// ReadCSV reads a delimited text file in the given encoding
func (bp *BaseParser) ReadCSV(filePath string, encoding Encoding) ([][]string, error) {
	file, err := bp.openFile(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	var source io.Reader
	switch encoding {
	case EncodingWindows1252:
		source = charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(content))
	default:
		content = bytes.TrimPrefix(content, utf8BOM)
		if bp.config.ValidateEncoding {
			if err := bp.validateEncoding(content, filePath); err != nil {
				bp.logger.WithError(err).WithField("file_path", filePath).Error("File encoding validation failed")
				return nil, err
			}
		}
		source = bytes.NewReader(content)
	}

	reader := csv.NewReader(source)
	bp.configureReader(reader)

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := len(rows) + 1
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, line, "record", "", err)
		}
		rows = append(rows, record)
	}

	bp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"rows":      len(rows),
		"encoding":  encoding,
	}).Debug("Read delimited file")
	return rows, nil
}

// configureReader sets up the CSV reader with our configuration
func (bp *BaseParser) configureReader(reader *csv.Reader) {
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// validateEncoding checks that the content is valid UTF-8 text
func (bp *BaseParser) validateEncoding(content []byte, filePath string) error {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.ParseError(
				errors.CodeEncodingError,
				filePath,
				lineNum,
				"encoding",
				"",
				fmt.Errorf("invalid UTF-8 encoding detected"),
			)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	return nil
}

// ReadXLSX reads every row of the first sheet of a workbook
func (bp *BaseParser) ReadXLSX(filePath string) ([][]string, error) {
	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		return nil, errors.FileError(errors.CodeFilePermission, filePath, err)
	}

	book, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 0, "sheet", "", fmt.Errorf("workbook has no sheets"))
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	bp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"sheet":     sheets[0],
		"rows":      len(rows),
	}).Debug("Read workbook")
	return rows, nil
}

// isEmptyRecord checks if all fields in a record are empty or whitespace
func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed value at index, or a missing column error
func cell(record []string, index int, column string, filePath string, line int) (string, error) {
	if index >= len(record) {
		return "", errors.ParseError(errors.CodeMissingColumn, filePath, line, column, "",
			fmt.Errorf("column %d not present in record with %d fields", index+1, len(record)))
	}
	return strings.TrimSpace(record[index]), nil
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	TotalLines     int `json:"total_lines"`
	RecordsParsed  int `json:"records_parsed"`
	RecordsSkipped int `json:"records_skipped"`
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records (%d skipped)",
		ps.TotalLines, ps.RecordsParsed, ps.RecordsSkipped)
}
