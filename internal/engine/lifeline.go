package engine

import (
	"math/rand"

	"millionaire-quiz-engine/internal/domain"
)

// PhoneFallbackHint is spoken when the question carries no explanation.
const PhoneFallbackHint = "Hmm, that's a tough one... but stay calm and think it through, you can work it out!"

// Lifelines tracks the three one-shot assists for a single run. All
// three start available and each flips off exactly once; only a new run
// resets them.
type Lifelines struct {
	fiftyFifty  bool
	phoneFriend bool
	askAudience bool
}

func NewLifelines() Lifelines {
	return Lifelines{fiftyFifty: true, phoneFriend: true, askAudience: true}
}

// Available reports whether a lifeline is still unused.
func (l *Lifelines) Available(kind domain.Lifeline) bool {
	switch kind {
	case domain.LifelineFiftyFifty:
		return l.fiftyFifty
	case domain.LifelinePhoneFriend:
		return l.phoneFriend
	case domain.LifelineAskAudience:
		return l.askAudience
	}
	return false
}

// FiftyFifty picks two wrong option positions to eliminate, uniformly
// from the three non-correct positions.
func (l *Lifelines) FiftyFifty(rnd *rand.Rand, correctIndex int) ([2]int, error) {
	if !l.fiftyFifty {
		return [2]int{}, domain.ErrLifelineUsed
	}
	wrong := make([]int, 0, 3)
	for i := 0; i < 4; i++ {
		if i != correctIndex {
			wrong = append(wrong, i)
		}
	}
	for i := len(wrong) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		wrong[i], wrong[j] = wrong[j], wrong[i]
	}
	l.fiftyFifty = false
	return [2]int{wrong[0], wrong[1]}, nil
}

// PhoneFriend returns the question's explanation as the friend's hint,
// or a generic line when there is none.
func (l *Lifelines) PhoneFriend(q domain.Question) (string, error) {
	if !l.phoneFriend {
		return "", domain.ErrLifelineUsed
	}
	l.phoneFriend = false
	if q.Explanation != "" {
		return q.Explanation, nil
	}
	return PhoneFallbackHint, nil
}

// AskAudience simulates the audience poll: four non-negative integers
// summing to exactly 100 with the correct position drawn from [70,84].
// When correctIndex is out of range it is recomputed from options; if
// that fails too the poll errors out with no state change.
func (l *Lifelines) AskAudience(rnd *rand.Rand, correctIndex int, options []domain.Option) ([4]int, error) {
	if !l.askAudience {
		return [4]int{}, domain.ErrLifelineUsed
	}
	if correctIndex < 0 || correctIndex >= 4 {
		correctIndex = -1
		for i, opt := range options {
			if opt.Correct {
				correctIndex = i
				break
			}
		}
		if correctIndex < 0 || correctIndex >= 4 {
			return [4]int{}, domain.ErrIndeterminateAnswer
		}
	}
	l.askAudience = false

	var percentages [4]int
	percentages[correctIndex] = 70 + rnd.Intn(15)

	remaining := 100 - percentages[correctIndex]
	others := make([]int, 0, 3)
	for i := 0; i < 4; i++ {
		if i != correctIndex {
			others = append(others, i)
		}
	}
	for i := len(others) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		others[i], others[j] = others[j], others[i]
	}

	first := rnd.Intn(remaining - 5)
	percentages[others[0]] = first
	remaining -= first

	second := rnd.Intn(remaining)
	percentages[others[1]] = second
	percentages[others[2]] = remaining - second

	return percentages, nil
}
