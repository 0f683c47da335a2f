package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"millionaire-quiz-engine/internal/bank"
	"millionaire-quiz-engine/internal/domain"
	"millionaire-quiz-engine/internal/infra/memory"
)

// manualScheduler queues callbacks for the test to fire by hand. Cancel
// is deliberately a no-op so tests can simulate a timer that slipped
// past Stop and still fires late.
type manualScheduler struct {
	pending []func()
	cancels int
}

func (m *manualScheduler) Schedule(_ time.Duration, fn func()) func() {
	m.pending = append(m.pending, fn)
	return func() { m.cancels++ }
}

func (m *manualScheduler) fire(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, m.pending, "no scheduled callback to fire")
	fn := m.pending[0]
	m.pending = m.pending[1:]
	fn()
}

type endedEvent struct {
	outcome    domain.Outcome
	finalPrize int64
	mistakes   []string
}

type recordingPresenter struct {
	questions []Prompt
	resolved  []domain.Outcome
	ended     []endedEvent
	lifelines []domain.Lifeline
}

func (p *recordingPresenter) QuestionReady(prompt Prompt) {
	p.questions = append(p.questions, prompt)
}

func (p *recordingPresenter) AnswerResolved(outcome domain.Outcome, _ int, _ string) {
	p.resolved = append(p.resolved, outcome)
}

func (p *recordingPresenter) SessionEnded(outcome domain.Outcome, finalPrize int64, mistakes []string) {
	p.ended = append(p.ended, endedEvent{outcome: outcome, finalPrize: finalPrize, mistakes: mistakes})
}

func (p *recordingPresenter) LifelineApplied(kind domain.Lifeline, _ any) {
	p.lifelines = append(p.lifelines, kind)
}

// failingStore errors on every call to prove storage failures never
// surface as gameplay errors.
type failingStore struct{}

var errStorage = errors.New("storage down")

func (failingStore) History(context.Context) ([]domain.HistoryEntry, error) { return nil, errStorage }
func (failingStore) SaveHistory(context.Context, []domain.HistoryEntry) error {
	return errStorage
}
func (failingStore) Mistakes(context.Context) ([]string, error)   { return nil, errStorage }
func (failingStore) SaveMistakes(context.Context, []string) error { return errStorage }
func (failingStore) TotalPrize(context.Context) (int64, error)    { return 0, errStorage }
func (failingStore) SaveTotalPrize(context.Context, int64) error  { return errStorage }
func (failingStore) OwnedItems(context.Context) ([]string, error) { return nil, errStorage }
func (failingStore) ActiveTheme(context.Context) (string, error)  { return "", errStorage }

func geometryRecords() []bank.Record {
	return []bank.Record{
		record("g1", "geometry", "180"),
		record("g2", "geometry", "90"),
		record("g3", "geometry", "360"),
		record("g4", "geometry", "270"),
		record("g5", "geometry", "45"),
		record("a1", "algebra", "x=2"),
		record("a2", "algebra", "x=7"),
	}
}

func newTestController(t *testing.T, store ProgressStore, cfg Config) (*Controller, *manualScheduler, *recordingPresenter) {
	t.Helper()
	if store == nil {
		store = memory.NewProgressStore()
	}
	banks := memory.NewBankRepository(memory.NewStaticRecordLoader(map[string][]bank.Record{
		"sample": geometryRecords(),
	}), time.Minute)
	sched := &manualScheduler{}
	presenter := &recordingPresenter{}
	c := NewController(banks, store, presenter, nil, sched, rand.New(rand.NewSource(1)), cfg)
	return c, sched, presenter
}

// answerCurrent submits the right or wrong option and fires the reveal.
func answerCurrent(t *testing.T, c *Controller, sched *manualScheduler, correctly bool) {
	t.Helper()
	prompt, err := c.CurrentQuestion()
	require.NoError(t, err)
	selected := prompt.CorrectIndex
	if !correctly {
		selected = (prompt.CorrectIndex + 1) % len(prompt.Options)
	}
	require.NoError(t, c.SubmitAnswer(selected))
	require.Equal(t, domain.PhaseSuspense, c.Phase())
	sched.fire(t)
	require.Equal(t, domain.PhaseResolved, c.Phase())
}

func TestNormalRunPerfectClear(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProgressStore()
	c, sched, presenter := newTestController(t, store, Config{})

	prompt, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{
		DatasetID: "sample",
		Units:     []string{"geometry"},
	})
	require.NoError(t, err)
	require.Equal(t, 5, prompt.Total)

	for i := 0; i < 5; i++ {
		answerCurrent(t, c, sched, true)
		phase, err := c.Advance()
		require.NoError(t, err)
		if i < 4 {
			require.Equal(t, domain.PhasePresenting, phase)
		} else {
			require.Equal(t, domain.PhaseEndedWin, phase)
		}
	}

	summary, err := c.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCorrect, summary.Outcome)
	assert.Equal(t, 5, summary.Score)
	assert.Equal(t, domain.DefaultPrizeLadder[4], summary.FinalPrize)
	assert.Empty(t, summary.Mistakes)
	assert.Equal(t, domain.PhaseIdle, c.Phase())

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 5, history[0].MaxQuestions)
	assert.Equal(t, summary.FinalPrize, history[0].Prize)

	total, err := store.TotalPrize(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary.FinalPrize, total)

	require.Len(t, presenter.ended, 1)
	assert.Equal(t, summary.FinalPrize, presenter.ended[0].finalPrize)
}

func TestWrongAnswerEndsRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProgressStore()
	c, sched, presenter := newTestController(t, store, Config{})

	_, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)

	prompt, err := c.CurrentQuestion()
	require.NoError(t, err)
	missedID := prompt.Question.ID

	answerCurrent(t, c, sched, false)
	require.Equal(t, []domain.Outcome{domain.OutcomeWrong}, presenter.resolved)

	phase, err := c.Advance()
	require.NoError(t, err)
	require.Equal(t, domain.PhaseEndedLoss, phase)

	summary, err := c.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeWrong, summary.Outcome)
	assert.Equal(t, 0, summary.Score)
	assert.Equal(t, int64(0), summary.FinalPrize)
	assert.Equal(t, []string{missedID}, summary.Mistakes)

	mistakes, err := store.Mistakes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{missedID}, mistakes)

	total, err := store.TotalPrize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestReviewModeEmptySelection(t *testing.T) {
	ctx := context.Background()
	c, _, presenter := newTestController(t, nil, Config{})

	_, err := c.StartSession(ctx, domain.ModeReview, StartOptions{DatasetID: "sample"})
	require.ErrorIs(t, err, domain.ErrEmptySelection)
	assert.Equal(t, domain.PhaseIdle, c.Phase())
	assert.Empty(t, presenter.questions)
}

func TestReviewRunRetiresMistakesWithoutPayout(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProgressStore()
	require.NoError(t, store.SaveMistakes(ctx, []string{"g2"}))
	c, sched, _ := newTestController(t, store, Config{})

	prompt, err := c.StartSession(ctx, domain.ModeReview, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)
	require.Equal(t, 1, prompt.Total)
	require.Equal(t, "g2", prompt.Question.ID)

	answerCurrent(t, c, sched, true)
	phase, err := c.Advance()
	require.NoError(t, err)
	require.Equal(t, domain.PhaseEndedWin, phase)

	summary, err := c.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Score)

	mistakes, err := store.Mistakes(ctx)
	require.NoError(t, err)
	assert.Empty(t, mistakes)

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history, "review runs never log history")

	total, err := store.TotalPrize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total, "review runs never pay out")
}

func TestSingleModeRunsOneQuestion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProgressStore()
	c, sched, _ := newTestController(t, store, Config{})

	prompt, err := c.StartSession(ctx, domain.ModeSingle, StartOptions{DatasetID: "sample", QuestionID: "g3"})
	require.NoError(t, err)
	require.Equal(t, 1, prompt.Total)
	require.Equal(t, "g3", prompt.Question.ID)

	answerCurrent(t, c, sched, true)
	phase, err := c.Advance()
	require.NoError(t, err)
	require.Equal(t, domain.PhaseEndedWin, phase)

	summary, err := c.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPrizeLadder[0], summary.FinalPrize)

	_, err = c.StartSession(ctx, domain.ModeSingle, StartOptions{DatasetID: "sample", QuestionID: "nope"})
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)
}

func TestSubmitAnswerRejectsOutOfRangeIndex(t *testing.T) {
	ctx := context.Background()
	c, sched, _ := newTestController(t, nil, Config{})

	_, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)

	require.ErrorIs(t, c.SubmitAnswer(-1), domain.ErrInvalidOption)
	require.ErrorIs(t, c.SubmitAnswer(4), domain.ErrInvalidOption)
	require.Equal(t, domain.PhasePresenting, c.Phase())
	require.Empty(t, sched.pending, "rejected answers must not schedule a reveal")

	// A valid index still goes through afterwards.
	prompt, err := c.CurrentQuestion()
	require.NoError(t, err)
	require.NoError(t, c.SubmitAnswer(prompt.CorrectIndex))
}

func TestSubmitAnswerReentrancyGuard(t *testing.T) {
	ctx := context.Background()
	c, sched, presenter := newTestController(t, nil, Config{})

	_, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)

	prompt, err := c.CurrentQuestion()
	require.NoError(t, err)
	require.NoError(t, c.SubmitAnswer(prompt.CorrectIndex))

	// Input is locked during suspense and after the reveal.
	require.ErrorIs(t, c.SubmitAnswer(prompt.CorrectIndex), domain.ErrNotPresenting)
	sched.fire(t)
	require.ErrorIs(t, c.SubmitAnswer(prompt.CorrectIndex), domain.ErrNotPresenting)

	require.Len(t, presenter.resolved, 1, "double submission must not double-score")
}

func TestAbandonIgnoresStaleReveal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProgressStore()
	c, sched, presenter := newTestController(t, store, Config{})

	_, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)

	prompt, err := c.CurrentQuestion()
	require.NoError(t, err)
	require.NoError(t, c.SubmitAnswer(prompt.CorrectIndex))

	c.Abandon()
	require.Equal(t, domain.PhaseIdle, c.Phase())
	require.Equal(t, 1, sched.cancels)

	// The timer slipped past Stop and fires anyway: the stale callback
	// must not resurrect the dropped run.
	sched.fire(t)
	assert.Equal(t, domain.PhaseIdle, c.Phase())
	assert.Empty(t, presenter.resolved)

	mistakes, err := store.Mistakes(ctx)
	require.NoError(t, err)
	assert.Empty(t, mistakes)
}

func TestStaleRevealAfterRestartIsIgnored(t *testing.T) {
	ctx := context.Background()
	c, sched, presenter := newTestController(t, nil, Config{})

	_, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)
	prompt, err := c.CurrentQuestion()
	require.NoError(t, err)
	require.NoError(t, c.SubmitAnswer(prompt.CorrectIndex))

	// A new run replaces the suspended one before the reveal fires.
	_, err = c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)

	sched.fire(t)
	assert.Equal(t, domain.PhasePresenting, c.Phase())
	assert.Empty(t, presenter.resolved)
}

func TestLifelinesOncePerSession(t *testing.T) {
	ctx := context.Background()
	c, _, presenter := newTestController(t, nil, Config{})

	_, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)

	eliminated, err := c.UseFiftyFifty()
	require.NoError(t, err)
	prompt, err := c.CurrentQuestion()
	require.NoError(t, err)
	assert.NotEqual(t, prompt.CorrectIndex, eliminated[0])
	assert.NotEqual(t, prompt.CorrectIndex, eliminated[1])

	_, err = c.UseFiftyFifty()
	require.ErrorIs(t, err, domain.ErrLifelineUsed)

	hint, err := c.UsePhoneFriend()
	require.NoError(t, err)
	require.NotEmpty(t, hint)
	_, err = c.UsePhoneFriend()
	require.ErrorIs(t, err, domain.ErrLifelineUsed)

	percentages, err := c.UseAskAudience()
	require.NoError(t, err)
	sum := 0
	for _, p := range percentages {
		sum += p
	}
	require.Equal(t, 100, sum)
	_, err = c.UseAskAudience()
	require.ErrorIs(t, err, domain.ErrLifelineUsed)

	require.Equal(t, []domain.Lifeline{
		domain.LifelineFiftyFifty,
		domain.LifelinePhoneFriend,
		domain.LifelineAskAudience,
	}, presenter.lifelines)

	// A fresh run resets all three.
	_, err = c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)
	_, err = c.UseFiftyFifty()
	require.NoError(t, err)
}

func TestLifelinesRequireActiveSession(t *testing.T) {
	c, _, _ := newTestController(t, nil, Config{})

	_, err := c.UseFiftyFifty()
	require.ErrorIs(t, err, domain.ErrNoActiveSession)
	_, err = c.UsePhoneFriend()
	require.ErrorIs(t, err, domain.ErrNoActiveSession)
	_, err = c.UseAskAudience()
	require.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestStorageFailuresNeverBlockGameplay(t *testing.T) {
	ctx := context.Background()
	c, sched, _ := newTestController(t, failingStore{}, Config{})

	_, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)

	answerCurrent(t, c, sched, false)
	phase, err := c.Advance()
	require.NoError(t, err)
	require.Equal(t, domain.PhaseEndedLoss, phase)

	summary, err := c.Finalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeWrong, summary.Outcome)
}

func TestHistoryCapKeepsNewestEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProgressStore()
	c, sched, _ := newTestController(t, store, Config{HistoryLimit: 2})

	for i := 0; i < 3; i++ {
		_, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
		require.NoError(t, err)
		answerCurrent(t, c, sched, true)
		_, err = c.Advance()
		require.NoError(t, err)
		answerCurrent(t, c, sched, false)
		_, err = c.Advance()
		require.NoError(t, err)
		_, err = c.Finalize(ctx)
		require.NoError(t, err)
	}

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Score)
}

func TestCurrentQuestionCachedUntilAdvance(t *testing.T) {
	ctx := context.Background()
	c, sched, _ := newTestController(t, nil, Config{})

	first, err := c.StartSession(ctx, domain.ModeNormal, StartOptions{DatasetID: "sample"})
	require.NoError(t, err)

	again, err := c.CurrentQuestion()
	require.NoError(t, err)
	assert.Equal(t, first.Options, again.Options)
	assert.Equal(t, first.CorrectIndex, again.CorrectIndex)

	answerCurrent(t, c, sched, true)
	_, err = c.Advance()
	require.NoError(t, err)

	next, err := c.CurrentQuestion()
	require.NoError(t, err)
	assert.NotEqual(t, first.Question.ID, next.Question.ID)
	assert.Equal(t, 2, next.Number)
}
