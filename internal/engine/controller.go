package engine

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"millionaire-quiz-engine/internal/bank"
	"millionaire-quiz-engine/internal/domain"
)

// Config tunes a Controller. Zero values fall back to the standard
// ladder, delay and history defaults.
type Config struct {
	PrizeLadder   []int64
	MaxQuestions  int           // defaults to len(PrizeLadder)
	SuspenseDelay time.Duration // answer lock to reveal
	HistoryLimit  int           // stored run log cap
}

// DefaultSuspenseDelay paces the answer-lock → reveal transition.
const DefaultSuspenseDelay = 1500 * time.Millisecond

// DefaultHistoryLimit caps the persisted run log.
const DefaultHistoryLimit = 50

func (c Config) withDefaults() Config {
	if len(c.PrizeLadder) == 0 {
		c.PrizeLadder = domain.DefaultPrizeLadder
	}
	if c.MaxQuestions <= 0 || c.MaxQuestions > len(c.PrizeLadder) {
		c.MaxQuestions = len(c.PrizeLadder)
	}
	if c.SuspenseDelay <= 0 {
		c.SuspenseDelay = DefaultSuspenseDelay
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	return c
}

// StartOptions selects the quiz set for a run.
type StartOptions struct {
	DatasetID  string
	Units      []string // ModeNormal: restrict to these units
	QuestionID string   // ModeSingle: the one question to run
}

// Prompt is one displayed question with its synthesized options.
type Prompt struct {
	Question     domain.Question `json:"question"`
	Options      []domain.Option `json:"options"`
	CorrectIndex int             `json:"correctIndex"`
	Number       int             `json:"number"` // 1-based position in the run
	Total        int             `json:"total"`
	BankedPrize  int64           `json:"bankedPrize"`
	NextPrize    int64           `json:"nextPrize"`
}

// Summary is the finalized result of an ended run.
type Summary struct {
	SessionID    string          `json:"sessionId"`
	Mode         domain.Mode     `json:"mode"`
	Outcome      domain.Outcome  `json:"outcome"`
	Score        int             `json:"score"`
	MaxQuestions int             `json:"maxQuestions"`
	FinalPrize   int64           `json:"finalPrize"`
	Mistakes     []string        `json:"mistakes"`
}

// run is the state of one active session. Owned exclusively by the
// Controller; presenter callbacks only ever see copies.
type run struct {
	id          string
	generation  uint64
	mode        domain.Mode
	bank        *bank.Bank
	quizSet     []domain.Question
	index       int
	score       int
	mistakes    []string
	lifelines   Lifelines
	phase       domain.Phase
	prompt      *Prompt
	lastOutcome domain.Outcome
}

// Controller is the session state machine: it builds quiz sets, paces
// the answer → reveal → advance cycle and keeps the persistent
// mistake/history/prize records in sync, best-effort.
type Controller struct {
	banks     BankRepository
	store     ProgressStore
	presenter Presenter
	sound     SoundPort
	sched     Scheduler
	synth     *Synthesizer
	rnd       *rand.Rand
	cfg       Config

	mu            sync.Mutex
	cur           *run
	generation    uint64
	cancelPending func()
}

// NewController wires the engine. A nil presenter, sound port or
// scheduler falls back to no-op/timer defaults; a nil rnd is seeded
// from the clock.
func NewController(banks BankRepository, store ProgressStore, presenter Presenter, sound SoundPort, sched Scheduler, rnd *rand.Rand, cfg Config) *Controller {
	if presenter == nil {
		presenter = NopPresenter{}
	}
	if sound == nil {
		sound = NopSound{}
	}
	if sched == nil {
		sched = TimerScheduler{}
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{
		banks:     banks,
		store:     store,
		presenter: presenter,
		sound:     sound,
		sched:     sched,
		synth:     NewSynthesizer(rnd),
		rnd:       rnd,
		cfg:       cfg.withDefaults(),
	}
}

// StartSession builds the quiz set for the requested mode and begins a
// fresh run, replacing any run in progress. On an empty selection no
// state changes and domain.ErrEmptySelection is returned.
func (c *Controller) StartSession(ctx context.Context, mode domain.Mode, opts StartOptions) (Prompt, error) {
	b, err := c.banks.GetBank(ctx, opts.DatasetID)
	if err != nil {
		return Prompt{}, err
	}

	quizSet, err := c.buildQuizSet(ctx, b, mode, opts)
	if err != nil {
		return Prompt{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropPendingLocked()
	c.generation++
	c.cur = &run{
		id:         uuid.NewString(),
		generation: c.generation,
		mode:       mode,
		bank:       b,
		quizSet:    quizSet,
		lifelines:  NewLifelines(),
		phase:      domain.PhasePresenting,
	}
	prompt := c.buildPromptLocked()
	c.sound.PlayBackgroundLoop("main")
	c.presenter.QuestionReady(prompt)
	return prompt, nil
}

func (c *Controller) buildQuizSet(ctx context.Context, b *bank.Bank, mode domain.Mode, opts StartOptions) ([]domain.Question, error) {
	var quizSet []domain.Question
	switch mode {
	case domain.ModeSingle:
		q, ok := b.ByID(opts.QuestionID)
		if !ok {
			return nil, domain.ErrQuestionNotFound
		}
		quizSet = []domain.Question{q}
	case domain.ModeReview:
		missed := make(map[string]struct{})
		for _, id := range c.loadMistakes(ctx) {
			missed[id] = struct{}{}
		}
		for _, q := range b.All() {
			if _, ok := missed[q.ID]; ok {
				quizSet = append(quizSet, q)
			}
		}
		quizSet = shuffleQuestions(c.rnd, quizSet)
	default:
		if len(opts.Units) > 0 {
			wanted := make(map[string]struct{}, len(opts.Units))
			for _, u := range opts.Units {
				wanted[u] = struct{}{}
			}
			for _, q := range b.All() {
				if _, ok := wanted[q.Unit]; ok {
					quizSet = append(quizSet, q)
				}
			}
		} else {
			quizSet = b.All()
		}
		quizSet = shuffleQuestions(c.rnd, quizSet)
	}

	if len(quizSet) > c.cfg.MaxQuestions {
		quizSet = quizSet[:c.cfg.MaxQuestions]
	}
	if len(quizSet) == 0 {
		return nil, domain.ErrEmptySelection
	}
	return quizSet, nil
}

// buildPromptLocked synthesizes and caches the prompt for the current
// index. Requires c.mu held and an active run.
func (c *Controller) buildPromptLocked() Prompt {
	r := c.cur
	q := r.quizSet[r.index]
	distractors := c.synth.Synthesize(q, r.bank, 3)
	options, correctIndex := BuildOptions(c.rnd, q.CorrectAnswer, distractors)

	var next int64
	if r.score < len(c.cfg.PrizeLadder) {
		next = c.cfg.PrizeLadder[r.score]
	}
	prompt := Prompt{
		Question:     q,
		Options:      options,
		CorrectIndex: correctIndex,
		Number:       r.index + 1,
		Total:        len(r.quizSet),
		BankedPrize:  domain.PrizeFor(c.cfg.PrizeLadder, r.score),
		NextPrize:    next,
	}
	r.prompt = &prompt
	return prompt
}

// CurrentQuestion returns the cached prompt for the question on display.
func (c *Controller) CurrentQuestion() (Prompt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.cur.prompt == nil {
		return Prompt{}, domain.ErrNoActiveSession
	}
	return *c.cur.prompt, nil
}

// Phase reports the state machine position (PhaseIdle between runs).
func (c *Controller) Phase() domain.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return domain.PhaseIdle
	}
	return c.cur.phase
}

// SubmitAnswer locks input for the selected option and schedules the
// reveal. Valid only while presenting; re-entrant calls during the
// suspense window are rejected so a double tap cannot double-score.
func (c *Controller) SubmitAnswer(selected int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur == nil {
		return domain.ErrNoActiveSession
	}
	if c.cur.phase != domain.PhasePresenting {
		return domain.ErrNotPresenting
	}
	if selected < 0 || selected >= len(c.cur.prompt.Options) {
		return domain.ErrInvalidOption
	}

	c.cur.phase = domain.PhaseSuspense
	c.sound.PlayEffect("suspense")

	gen := c.cur.generation
	c.cancelPending = c.sched.Schedule(c.cfg.SuspenseDelay, func() {
		c.resolve(gen, selected)
	})
	return nil
}

// resolve fires after the suspense delay: it scores the locked answer
// and emits the outcome. A stale fire from a replaced run is ignored.
func (c *Controller) resolve(gen uint64, selected int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.cur
	if r == nil || r.generation != gen || r.phase != domain.PhaseSuspense {
		return
	}

	prompt := r.prompt
	q := r.quizSet[r.index]
	r.phase = domain.PhaseResolved

	if selected == prompt.CorrectIndex {
		r.lastOutcome = domain.OutcomeCorrect
		r.score++
		c.sound.PlayEffect("correct")
		if r.mode == domain.ModeReview {
			c.retireMistake(q.ID)
		}
	} else {
		r.lastOutcome = domain.OutcomeWrong
		r.mistakes = append(r.mistakes, q.ID)
		c.sound.PlayEffect("wrong")
		c.recordMistake(q.ID)
	}

	c.presenter.AnswerResolved(r.lastOutcome, prompt.CorrectIndex, q.Explanation)
}

// Advance moves past a resolved answer: a wrong answer ends the run,
// the last correct answer wins it, anything else presents the next
// question.
func (c *Controller) Advance() (domain.Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.cur
	if r == nil {
		return domain.PhaseIdle, domain.ErrNoActiveSession
	}
	if r.phase != domain.PhaseResolved {
		return r.phase, domain.ErrNotResolved
	}

	if r.lastOutcome == domain.OutcomeWrong {
		r.phase = domain.PhaseEndedLoss
		return r.phase, nil
	}

	r.index++
	if r.index == len(r.quizSet) {
		r.phase = domain.PhaseEndedWin
		return r.phase, nil
	}

	r.phase = domain.PhasePresenting
	prompt := c.buildPromptLocked()
	c.presenter.QuestionReady(prompt)
	return r.phase, nil
}

// Finalize settles an ended run: computes the banked prize and, for
// normal and single runs, appends the history entry and accumulates
// the prize balance. Only review runs skip payout and logging. The run
// is cleared and the controller returns to idle.
func (c *Controller) Finalize(ctx context.Context) (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := c.cur
	if r == nil {
		return Summary{}, domain.ErrNoActiveSession
	}
	if r.phase != domain.PhaseEndedWin && r.phase != domain.PhaseEndedLoss {
		return Summary{}, domain.ErrNotEnded
	}

	outcome := domain.OutcomeCorrect
	if r.phase == domain.PhaseEndedLoss {
		outcome = domain.OutcomeWrong
	}
	finalPrize := domain.PrizeFor(c.cfg.PrizeLadder, r.score)

	summary := Summary{
		SessionID:    r.id,
		Mode:         r.mode,
		Outcome:      outcome,
		Score:        r.score,
		MaxQuestions: len(r.quizSet),
		FinalPrize:   finalPrize,
		Mistakes:     append([]string(nil), r.mistakes...),
	}

	// Review runs exist only to retire mistakes: no payout, no log.
	if r.mode != domain.ModeReview {
		c.appendHistory(ctx, summary)
		c.addPrize(ctx, finalPrize)
	}

	c.sound.Stop()
	c.presenter.SessionEnded(outcome, finalPrize, summary.Mistakes)
	c.dropPendingLocked()
	c.cur = nil
	return summary, nil
}

// Abandon drops the current run without settling it (home-screen
// navigation). Pending reveal timers are cancelled and late fires are
// ignored via the generation check.
func (c *Controller) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return
	}
	c.dropPendingLocked()
	c.generation++
	c.cur = nil
	c.sound.Stop()
}

func (c *Controller) dropPendingLocked() {
	if c.cancelPending != nil {
		c.cancelPending()
		c.cancelPending = nil
	}
}

// UseFiftyFifty eliminates two wrong options for the question on display.
func (c *Controller) UseFiftyFifty() ([2]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.cur.prompt == nil {
		return [2]int{}, domain.ErrNoActiveSession
	}
	eliminated, err := c.cur.lifelines.FiftyFifty(c.rnd, c.cur.prompt.CorrectIndex)
	if err != nil {
		return [2]int{}, err
	}
	c.sound.PlayEffect("lifeline")
	c.presenter.LifelineApplied(domain.LifelineFiftyFifty, eliminated)
	return eliminated, nil
}

// UsePhoneFriend returns the friend's hint for the question on display.
func (c *Controller) UsePhoneFriend() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.cur.prompt == nil {
		return "", domain.ErrNoActiveSession
	}
	hint, err := c.cur.lifelines.PhoneFriend(c.cur.prompt.Question)
	if err != nil {
		return "", err
	}
	c.sound.PlayEffect("lifeline")
	c.presenter.LifelineApplied(domain.LifelinePhoneFriend, hint)
	return hint, nil
}

// UseAskAudience polls the simulated audience for the question on display.
func (c *Controller) UseAskAudience() ([4]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil || c.cur.prompt == nil {
		return [4]int{}, domain.ErrNoActiveSession
	}
	percentages, err := c.cur.lifelines.AskAudience(c.rnd, c.cur.prompt.CorrectIndex, c.cur.prompt.Options)
	if err != nil {
		return [4]int{}, err
	}
	c.sound.PlayEffect("lifeline")
	c.presenter.LifelineApplied(domain.LifelineAskAudience, percentages)
	return percentages, nil
}

// --- best-effort persistence ---
// Storage failures are logged and swallowed: a run must be able to
// proceed unsaved, and reads degrade to an empty/zero baseline.

func (c *Controller) loadMistakes(ctx context.Context) []string {
	ids, err := c.store.Mistakes(ctx)
	if err != nil {
		log.Printf("progress store: read mistakes: %v", err)
		return nil
	}
	return ids
}

func (c *Controller) recordMistake(id string) {
	ctx := context.Background()
	ids := c.loadMistakes(ctx)
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	if err := c.store.SaveMistakes(ctx, append(ids, id)); err != nil {
		log.Printf("progress store: save mistakes: %v", err)
	}
}

func (c *Controller) retireMistake(id string) {
	ctx := context.Background()
	ids := c.loadMistakes(ctx)
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(ids) {
		return
	}
	if err := c.store.SaveMistakes(ctx, kept); err != nil {
		log.Printf("progress store: save mistakes: %v", err)
	}
}

func (c *Controller) appendHistory(ctx context.Context, s Summary) {
	entries, err := c.store.History(ctx)
	if err != nil {
		log.Printf("progress store: read history: %v", err)
		entries = nil
	}
	entry := domain.HistoryEntry{
		SessionID:    s.SessionID,
		Date:         time.Now(),
		Score:        s.Score,
		Prize:        s.FinalPrize,
		MaxQuestions: s.MaxQuestions,
		MistakeIDs:   s.Mistakes,
	}
	entries = append([]domain.HistoryEntry{entry}, entries...)
	if len(entries) > c.cfg.HistoryLimit {
		entries = entries[:c.cfg.HistoryLimit]
	}
	if err := c.store.SaveHistory(ctx, entries); err != nil {
		log.Printf("progress store: save history: %v", err)
	}
}

func (c *Controller) addPrize(ctx context.Context, amount int64) {
	if amount <= 0 {
		return
	}
	total, err := c.store.TotalPrize(ctx)
	if err != nil {
		log.Printf("progress store: read total prize: %v", err)
		total = 0
	}
	if err := c.store.SaveTotalPrize(ctx, total+amount); err != nil {
		log.Printf("progress store: save total prize: %v", err)
	}
}
