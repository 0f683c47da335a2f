package engine

import (
	"math/rand"

	"millionaire-quiz-engine/internal/bank"
	"millionaire-quiz-engine/internal/domain"
)

// PlaceholderDistractor pads the option list when the dataset is too
// small to supply enough distinct wrong answers.
const PlaceholderDistractor = "???"

// Synthesizer builds plausible wrong options for a question from the
// correct answers of the rest of the bank.
type Synthesizer struct {
	rnd *rand.Rand
}

func NewSynthesizer(rnd *rand.Rand) *Synthesizer {
	return &Synthesizer{rnd: rnd}
}

// Synthesize returns exactly count distractors for target: distinct,
// none equal to the target's own answer. Same-unit answers are
// preferred; the pool widens to the whole bank when the unit cannot
// supply enough, and pads with PlaceholderDistractor as a last resort.
func (s *Synthesizer) Synthesize(target domain.Question, b *bank.Bank, count int) []string {
	pool := answerPool(b.ByUnit(target.Unit), target)
	if len(pool) < count {
		pool = mergePools(pool, answerPool(b.All(), target))
	}

	shuffleStrings(s.rnd, pool)
	if len(pool) > count {
		pool = pool[:count]
	}
	for len(pool) < count {
		pool = append(pool, PlaceholderDistractor)
	}
	return pool
}

// answerPool collects the distinct correct answers of questions other
// than target, excluding target's own answer.
func answerPool(questions []domain.Question, target domain.Question) []string {
	seen := make(map[string]struct{}, len(questions))
	pool := make([]string, 0, len(questions))
	for _, q := range questions {
		if q.ID == target.ID || q.CorrectAnswer == target.CorrectAnswer {
			continue
		}
		if _, dup := seen[q.CorrectAnswer]; dup {
			continue
		}
		seen[q.CorrectAnswer] = struct{}{}
		pool = append(pool, q.CorrectAnswer)
	}
	return pool
}

func mergePools(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, v := range base {
		seen[v] = struct{}{}
		merged = append(merged, v)
	}
	for _, v := range extra {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
	}
	return merged
}

// shuffleStrings applies a Fisher-Yates shuffle in place.
func shuffleStrings(rnd *rand.Rand, values []string) {
	for i := len(values) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		values[i], values[j] = values[j], values[i]
	}
}
