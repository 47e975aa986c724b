// Package sheet converts spreadsheet files into the card-set import document.
//
// Workbooks (.xlsx) yield one set per sheet, named after the sheet. CSV files
// yield a single set named after the file. In both, column A holds the
// question and column B the answer; an optional first row reading
// "question","answer" is treated as a header and skipped.
package sheet

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/starford/studycards/internal/apperr"
	"github.com/starford/studycards/internal/models"
)

// Supported import file extensions.
const (
	ExtJSON = ".json"
	ExtXLSX = ".xlsx"
	ExtCSV  = ".csv"
)

// ToImportJSON reads an uploaded file and returns a document accepted by
// study.Controller.ImportSets. JSON files are passed through unchanged.
func ToImportJSON(filename string, r io.Reader) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ExtJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("sheet: read %s: %w", filename, err)
		}
		return data, nil
	case ExtXLSX:
		sets, err := FromXLSX(r)
		if err != nil {
			return nil, err
		}
		return json.Marshal(sets)
	case ExtCSV:
		sets, err := FromCSV(setNameFromFile(filename), r)
		if err != nil {
			return nil, err
		}
		return json.Marshal(sets)
	default:
		return nil, fmt.Errorf("sheet: %q: %w", filename, apperr.ErrUnsupportedFile)
	}
}

// FromXLSX reads every sheet of a workbook as a set. Sheets without any
// complete row are left out.
func FromXLSX(r io.Reader) (*models.CardSets, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("sheet: open workbook: %w", err)
	}
	defer f.Close()

	sets := models.NewCardSets()
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet: read %q: %w", name, err)
		}
		if cards := rowsToCards(rows); len(cards) > 0 {
			sets.Set(strings.TrimSpace(name), cards)
		}
	}
	return sets, nil
}

// FromCSV reads a comma separated file as the single set name.
func FromCSV(name string, r io.Reader) (*models.CardSets, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sheet: read csv: %w", err)
		}
		rows = append(rows, row)
	}

	sets := models.NewCardSets()
	if cards := rowsToCards(rows); len(cards) > 0 {
		sets.Set(name, cards)
	}
	return sets, nil
}

func rowsToCards(rows [][]string) []models.Card {
	cards := make([]models.Card, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		q, a := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if i == 0 && isHeader(q, a) {
			continue
		}
		if q == "" || a == "" {
			continue
		}
		cards = append(cards, models.Card{Question: q, Answer: a})
	}
	return cards
}

func isHeader(q, a string) bool {
	return strings.EqualFold(q, "question") && strings.EqualFold(a, "answer")
}

func setNameFromFile(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
