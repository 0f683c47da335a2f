package domain

import "errors"

var (
	// ErrEmptyDataset is returned when no valid question rows survive loading.
	ErrEmptyDataset = errors.New("question dataset is empty")
	// ErrEmptySelection is returned when the requested filters produce an empty quiz set.
	ErrEmptySelection = errors.New("no questions match the selection")
	// ErrQuestionNotFound indicates a requested question ID is not in the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDatasetNotFound indicates the question set could not be loaded.
	ErrDatasetNotFound = errors.New("question set not found")
	// ErrNoActiveSession is returned for run operations outside an active run.
	ErrNoActiveSession = errors.New("no active session")
	// ErrLifelineUsed is returned on the second use of a one-shot lifeline.
	ErrLifelineUsed = errors.New("lifeline already used")
	// ErrIndeterminateAnswer is returned when the correct option position
	// cannot be determined for the audience poll.
	ErrIndeterminateAnswer = errors.New("correct answer position indeterminate")
	// ErrNotPresenting rejects answers submitted while input is locked.
	ErrNotPresenting = errors.New("not accepting answers in current phase")
	// ErrInvalidOption rejects an answer index outside the displayed options.
	ErrInvalidOption = errors.New("selected option out of range")
	// ErrNotResolved rejects an advance before the current answer is revealed.
	ErrNotResolved = errors.New("current answer not resolved yet")
	// ErrNotEnded rejects finalization while the run is still in progress.
	ErrNotEnded = errors.New("session has not ended")
)
