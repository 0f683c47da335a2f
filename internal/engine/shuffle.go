package engine

import (
	"math/rand"

	"millionaire-quiz-engine/internal/domain"
)

// BuildOptions combines the correct answer with three distractors,
// applies a uniform Fisher-Yates permutation and reports where the
// correct option landed. Given a uniform random source the result is
// uniform over all orderings.
func BuildOptions(rnd *rand.Rand, correctText string, distractors []string) ([]domain.Option, int) {
	options := make([]domain.Option, 0, len(distractors)+1)
	options = append(options, domain.Option{Text: correctText, Correct: true})
	for _, d := range distractors {
		options = append(options, domain.Option{Text: d, Correct: false})
	}

	for i := len(options) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		options[i], options[j] = options[j], options[i]
	}

	correctIndex := -1
	for i, opt := range options {
		if opt.Correct {
			correctIndex = i
			break
		}
	}
	return options, correctIndex
}

// shuffleQuestions returns a shuffled copy, leaving the bank's order
// untouched.
func shuffleQuestions(rnd *rand.Rand, questions []domain.Question) []domain.Question {
	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
