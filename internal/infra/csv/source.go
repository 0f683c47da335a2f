// Package csv reads question datasets from row-oriented CSV files:
// one header row, then id,unit,text,correctAnswer,image,explanation.
// Quoted fields may contain the delimiter and doubled quotes escape a
// quote, which encoding/csv handles per RFC 4180.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"millionaire-quiz-engine/internal/bank"
)

// Source loads datasets from CSV files under a base directory; the
// dataset ID maps to {dir}/{id}.csv.
type Source struct {
	dir string
}

func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

func (s *Source) LoadRecords(_ context.Context, datasetID string) ([]bank.Record, error) {
	path := filepath.Join(s.dir, datasetID+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", datasetID, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads CSV rows into raw records. The header row is skipped and
// rows with fewer than four fields are discarded silently; content
// validation (blank text etc) belongs to the bank.
func Parse(r io.Reader) ([]bank.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows vary; short ones are dropped below

	var records []bank.Record
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if first {
			first = false
			continue
		}
		if len(row) < 4 {
			continue
		}
		rec := bank.Record{
			ID:            row[0],
			Unit:          row[1],
			Text:          row[2],
			CorrectAnswer: row[3],
			Columns:       len(row),
		}
		if len(row) > 4 {
			rec.Image = row[4]
		}
		if len(row) > 5 {
			rec.Explanation = row[5]
		}
		records = append(records, rec)
	}
	return records, nil
}
