// Package bank holds the immutable in-memory view of a loaded question
// dataset. Ingestion sources (CSV, Postgres) produce raw Records; Load
// normalizes them once and the resulting Bank is never mutated.
package bank

import (
	"strings"

	"millionaire-quiz-engine/internal/domain"
)

// Record is one raw row handed over by an ingestion source.
// Columns is the number of fields the source saw on the row, so the
// bank can discard under-populated rows regardless of origin.
type Record struct {
	ID            string
	Unit          string
	Text          string
	CorrectAnswer string
	Image         string
	Explanation   string
	Columns       int
}

// Bank is the normalized question set for the active dataset.
type Bank struct {
	questions []domain.Question
	byID      map[string]int
	units     []string
	byUnit    map[string][]int
}

// Load validates and indexes raw records. Rows with fewer than four
// populated columns, a blank text, or a blank correct answer are
// dropped silently; duplicate IDs keep the first occurrence. Returns
// domain.ErrEmptyDataset when nothing valid remains.
func Load(records []Record) (*Bank, error) {
	b := &Bank{
		byID:   make(map[string]int),
		byUnit: make(map[string][]int),
	}
	for _, r := range records {
		q := domain.Question{
			ID:            strings.TrimSpace(r.ID),
			Unit:          strings.TrimSpace(r.Unit),
			Text:          strings.TrimSpace(r.Text),
			CorrectAnswer: strings.TrimSpace(r.CorrectAnswer),
			Image:         strings.TrimSpace(r.Image),
			Explanation:   strings.TrimSpace(r.Explanation),
		}
		if r.Columns < 4 || q.ID == "" || q.Text == "" || q.CorrectAnswer == "" {
			continue
		}
		if _, dup := b.byID[q.ID]; dup {
			continue
		}
		idx := len(b.questions)
		b.questions = append(b.questions, q)
		b.byID[q.ID] = idx
		if q.Unit != "" {
			if _, seen := b.byUnit[q.Unit]; !seen {
				b.units = append(b.units, q.Unit)
			}
			b.byUnit[q.Unit] = append(b.byUnit[q.Unit], idx)
		}
	}
	if len(b.questions) == 0 {
		return nil, domain.ErrEmptyDataset
	}
	return b, nil
}

// Len reports the number of loaded questions.
func (b *Bank) Len() int {
	return len(b.questions)
}

// All returns a copy of every question in load order.
func (b *Bank) All() []domain.Question {
	out := make([]domain.Question, len(b.questions))
	copy(out, b.questions)
	return out
}

// ByID looks up a single question.
func (b *Bank) ByID(id string) (domain.Question, bool) {
	idx, ok := b.byID[id]
	if !ok {
		return domain.Question{}, false
	}
	return b.questions[idx], true
}

// ByUnit returns the questions of one unit in load order.
func (b *Bank) ByUnit(unit string) []domain.Question {
	idxs := b.byUnit[unit]
	out := make([]domain.Question, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, b.questions[i])
	}
	return out
}

// Units returns the distinct non-empty units in first-seen order.
func (b *Bank) Units() []string {
	out := make([]string, len(b.units))
	copy(out, b.units)
	return out
}

// UnitCounts maps each unit to its question count, for selection screens.
func (b *Bank) UnitCounts() map[string]int {
	counts := make(map[string]int, len(b.units))
	for unit, idxs := range b.byUnit {
		counts[unit] = len(idxs)
	}
	return counts
}
