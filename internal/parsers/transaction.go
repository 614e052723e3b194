package parsers

import (
	"ledgermerge/internal/date"
	"ledgermerge/internal/models"
	"ledgermerge/pkg/errors"
)

// Column positions of the import snapshot transaction rows
const (
	importDateColumn = iota
	importCategoryColumn
	importSubCategoryColumn
	importLabelColumn
	importAmountColumn
)

// Column positions of the current ledger rows; column 0 is the row order
const (
	currentOrderColumn = iota
	currentDateColumn
	currentCategoryColumn
	currentSubCategoryColumn
	currentLabelColumn
	currentAmountColumn
)

// currentSnapshotColumn holds the snapshot date in the current ledger's header
const currentSnapshotColumn = 7

var exampleDate = date.New(2023, 1, 5)

// rowParser builds transactions from one record layout
type rowParser struct {
	codec    Codec
	filePath string
	columns  [5]int
}

func (rp rowParser) parse(record []string, line int) (models.Transaction, error) {
	names := [5]string{"date", "category", "sub_category", "label", "amount"}
	var fields [5]string
	for i, index := range rp.columns {
		value, err := cell(record, index, names[i], rp.filePath, line)
		if err != nil {
			return models.Transaction{}, err
		}
		fields[i] = value
	}

	occurredAt, err := rp.codec.ParseDate(fields[0])
	if err != nil {
		return models.Transaction{}, errors.ParseError(errors.CodeInvalidData, rp.filePath, line, "date", fields[0], err).
			WithSuggestion("use a day-month-year date such as " + rp.codec.FormatDate(exampleDate))
	}

	amount, err := rp.codec.ParseAmount(fields[4])
	if err != nil {
		return models.Transaction{}, errors.ParseError(errors.CodeInvalidData, rp.filePath, line, "amount", fields[4], err)
	}

	return models.NewTransaction(occurredAt, fields[1], fields[2], fields[3], amount), nil
}

func newImportRowParser(codec Codec, filePath string) rowParser {
	return rowParser{
		codec:    codec,
		filePath: filePath,
		columns:  [5]int{importDateColumn, importCategoryColumn, importSubCategoryColumn, importLabelColumn, importAmountColumn},
	}
}

func newCurrentRowParser(codec Codec, filePath string) rowParser {
	return rowParser{
		codec:    codec,
		filePath: filePath,
		columns:  [5]int{currentDateColumn, currentCategoryColumn, currentSubCategoryColumn, currentLabelColumn, currentAmountColumn},
	}
}
