package checks

import (
	"errors"

	"media-reconciler/core/database"

	"gorm.io/gorm"
)

// KnownMediaColumns lists the columns the known-media store reads.
var KnownMediaColumns = []string{"page_title", "file_title"}

// DatabaseReport describes the known-media table.
type DatabaseReport struct {
	Driver  string   `json:"driver"`
	Table   string   `json:"table"`
	Columns int      `json:"columns"`
	Missing []string `json:"missing"`
	Matches bool     `json:"matches"`
}

// CheckDatabase compares the known-media table with the columns it must have.
func CheckDatabase(db *gorm.DB, table string) (*DatabaseReport, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}

	columns, err := database.GetTableColumns(db, table)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		have[col.Field] = struct{}{}
	}

	report := &DatabaseReport{
		Driver:  db.Dialector.Name(),
		Table:   table,
		Columns: len(columns),
		Missing: []string{},
	}
	for _, name := range KnownMediaColumns {
		if _, ok := have[name]; !ok {
			report.Missing = append(report.Missing, name)
		}
	}
	report.Matches = len(report.Missing) == 0
	return report, nil
}
