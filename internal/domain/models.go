package domain

import "time"

// Question is one normalized row of the loaded question set. Immutable
// once loaded; replaced wholesale when a different dataset is loaded.
type Question struct {
	ID            string `json:"id"`
	Unit          string `json:"unit"`
	Text          string `json:"text"`
	CorrectAnswer string `json:"correctAnswer"`
	Image         string `json:"image,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
}

// Option is one of the four answers shown for a question. Ephemeral:
// built per displayed question, discarded when the next one is shown.
type Option struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Mode selects how the quiz set for a run is built.
type Mode string

const (
	// ModeNormal samples up to the ladder length from the bank,
	// optionally restricted to selected units.
	ModeNormal Mode = "normal"
	// ModeReview restricts the run to previously missed questions and
	// never pays out or logs history.
	ModeReview Mode = "review"
	// ModeSingle runs exactly one question by ID (started from the
	// review list); pays out and logs history like a normal run.
	ModeSingle Mode = "single"
)

// Phase is the per-run state machine position.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePresenting Phase = "presenting"
	PhaseSuspense   Phase = "suspense"
	PhaseResolved   Phase = "resolved"
	PhaseEndedWin   Phase = "ended_win"
	PhaseEndedLoss  Phase = "ended_loss"
)

// Outcome is the result of a single answered question or a whole run.
type Outcome string

const (
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
)

// Lifeline identifies one of the three one-shot assists.
type Lifeline string

const (
	LifelineFiftyFifty  Lifeline = "fifty_fifty"
	LifelinePhoneFriend Lifeline = "phone_friend"
	LifelineAskAudience Lifeline = "ask_audience"
)

// HistoryEntry is one finished run, newest first in the stored log.
type HistoryEntry struct {
	SessionID    string    `json:"sessionId"`
	Date         time.Time `json:"date"`
	Score        int       `json:"score"`
	Prize        int64     `json:"prize"`
	MaxQuestions int       `json:"maxQuestions"`
	MistakeIDs   []string  `json:"mistakeIds"`
}
