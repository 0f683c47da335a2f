package engine

import (
	"context"

	"millionaire-quiz-engine/internal/bank"
	"millionaire-quiz-engine/internal/domain"
)

// BankRepository provides the question bank for a dataset (from
// cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, datasetID string) (*bank.Bank, error)
}

// ProgressStore is the durable key-value store behind history, mistakes
// and the prize balance. Every call is independently fallible; the
// controller treats failures as non-fatal.
type ProgressStore interface {
	History(ctx context.Context) ([]domain.HistoryEntry, error)
	SaveHistory(ctx context.Context, entries []domain.HistoryEntry) error
	Mistakes(ctx context.Context) ([]string, error)
	SaveMistakes(ctx context.Context, ids []string) error
	TotalPrize(ctx context.Context) (int64, error)
	SaveTotalPrize(ctx context.Context, total int64) error
	// OwnedItems and ActiveTheme belong to the shop layer; the engine
	// only reads them through for the presentation shell.
	OwnedItems(ctx context.Context) ([]string, error)
	ActiveTheme(ctx context.Context) (string, error)
}

// Presenter receives the events the engine raises toward the UI shell.
// Implementations must not call back into the controller from within an
// event callback.
type Presenter interface {
	QuestionReady(p Prompt)
	AnswerResolved(outcome domain.Outcome, correctIndex int, explanation string)
	SessionEnded(outcome domain.Outcome, finalPrize int64, mistakes []string)
	LifelineApplied(kind domain.Lifeline, payload any)
}

// SoundPort is the one-way contract with the audio subsystem. Sound
// timing is never a precondition for a state transition.
type SoundPort interface {
	PlayEffect(kind string)
	PlayBackgroundLoop(kind string)
	Stop()
}

// NopPresenter discards all events.
type NopPresenter struct{}

func (NopPresenter) QuestionReady(Prompt)                         {}
func (NopPresenter) AnswerResolved(domain.Outcome, int, string)   {}
func (NopPresenter) SessionEnded(domain.Outcome, int64, []string) {}
func (NopPresenter) LifelineApplied(domain.Lifeline, any)         {}

// NopSound discards all sound intents.
type NopSound struct{}

func (NopSound) PlayEffect(string)         {}
func (NopSound) PlayBackgroundLoop(string) {}
func (NopSound) Stop()                     {}
