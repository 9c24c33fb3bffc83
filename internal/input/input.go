// Package input reads the list of profile identifiers a batch run works through.
package input

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/profile-scraper/internal/types"
)

// ErrNoIdentifiers is returned when a file holds no usable identifiers.
var ErrNoIdentifiers = errors.New("no profile identifiers found")

// Read loads identifiers from path. The format follows the extension:
// .xlsx reads the first column of the first sheet, .csv reads the first
// column, and anything else is read as text with one identifier per line.
// Spreadsheet and CSV inputs carry a header row, which is skipped.
// Blank entries are dropped and surrounding whitespace is trimmed.
func Read(path string) ([]types.ProfileIdentifier, error) {
	var (
		ids []types.ProfileIdentifier
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		ids, err = readSpreadsheet(path)
	case ".csv":
		ids, err = readFile(path, ReadCSV)
	default:
		ids, err = readFile(path, ReadLines)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoIdentifiers)
	}
	return ids, nil
}

func readFile(path string, parse func(io.Reader) ([]types.ProfileIdentifier, error)) ([]types.ProfileIdentifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ids, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ids, nil
}

func readSpreadsheet(path string) ([]types.ProfileIdentifier, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoIdentifiers)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}
	return firstColumn(rows), nil
}

// ReadCSV returns the first column of every row after the header.
func ReadCSV(r io.Reader) ([]types.ProfileIdentifier, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return firstColumn(rows), nil
}

// ReadLines returns one identifier per non-blank line. Lines starting with
// '#' are comments.
func ReadLines(r io.Reader) ([]types.ProfileIdentifier, error) {
	var ids []types.ProfileIdentifier
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, types.ProfileIdentifier(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func firstColumn(rows [][]string) []types.ProfileIdentifier {
	if len(rows) <= 1 {
		return nil
	}
	ids := make([]types.ProfileIdentifier, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		cell := strings.TrimSpace(row[0])
		if cell == "" {
			continue
		}
		ids = append(ids, types.ProfileIdentifier(cell))
	}
	return ids
}
