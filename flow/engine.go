// Package flow drives the donor screening questionnaire: one question at a
// time, free-text answers, two branch rules and a final eligibility verdict.
//
// An Engine owns the state of a single conversation. Bot turns are paced by
// a Scheduler so the same engine runs on real timers in the bot and
// synchronously in tests.
package flow

import (
	"DonorBot/metrics"
	"DonorBot/model"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default pacing between bot turns.
const (
	defaultGreetingDelay   = 1000 * time.Millisecond
	defaultAnswerDelay     = 800 * time.Millisecond
	defaultVerdictDelay    = 1200 * time.Millisecond
	defaultSpeechTimeout   = 5 * time.Second
	defaultConsumerTimeout = 10 * time.Second
)

// Output renders the conversation stream in emission order.
type Output interface {
	Emit(ctx context.Context, msg model.Message) error
}

// Voice announces bot text aloud. Errors are logged and never stop the flow.
type Voice interface {
	Speak(ctx context.Context, text string) error
}

// Consumer receives the finished screening. Delivery is best effort.
type Consumer interface {
	Consume(ctx context.Context, s model.Screening) error
}

// OutputFunc adapts a function to Output.
type OutputFunc func(ctx context.Context, msg model.Message) error

func (f OutputFunc) Emit(ctx context.Context, msg model.Message) error {
	return f(ctx, msg)
}

type Config struct {
	Questions []model.Question // default: model.DefaultQuestions()
	Rules     []Rule           // default: DefaultRules()
	Scheduler Scheduler        // default: TimerScheduler

	Output   Output
	Voice    Voice    // optional
	Consumer Consumer // optional

	UserID  int64
	Logger  *zerolog.Logger
	Metrics *metrics.Collector
	Now     func() time.Time

	GreetingDelay   time.Duration
	AnswerDelay     time.Duration
	VerdictDelay    time.Duration
	SpeechTimeout   time.Duration
	ConsumerTimeout time.Duration
}

// Engine is the question-flow state machine for one conversation:
// Idle -> Greeting -> Asking -> Finishing -> Done, and back to Idle on Reset.
type Engine struct {
	questions []model.Question
	rules     []Rule
	sched     Scheduler
	out       Output
	voice     Voice
	consumer  Consumer
	metrics   *metrics.Collector
	now       func() time.Time
	userID    int64
	base      zerolog.Logger

	greetingDelay   time.Duration
	answerDelay     time.Duration
	verdictDelay    time.Duration
	speechTimeout   time.Duration
	consumerTimeout time.Duration

	mu        sync.Mutex
	state     model.SessionState
	sessionID string
	logger    zerolog.Logger
	gen       uint64      // bumped by Reset and Close to orphan pending steps
	stop      func() bool // cancels the pending step
}

// effects are side effects collected under the lock and run after it is
// released.
type effects struct {
	speech    []string
	screening *model.Screening
}

func New(cfg Config) (*Engine, error) {
	if cfg.Output == nil {
		return nil, errors.New("flow: output is required")
	}

	questions := cfg.Questions
	if questions == nil {
		questions = model.DefaultQuestions()
	}
	if err := model.ValidateQuestions(questions); err != nil {
		return nil, err
	}

	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}

	sched := cfg.Scheduler
	if sched == nil {
		sched = TimerScheduler{}
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		questions:       append([]model.Question(nil), questions...),
		rules:           rules,
		sched:           sched,
		out:             cfg.Output,
		voice:           cfg.Voice,
		consumer:        cfg.Consumer,
		metrics:         cfg.Metrics,
		now:             now,
		userID:          cfg.UserID,
		base:            logger,
		greetingDelay:   orDefault(cfg.GreetingDelay, defaultGreetingDelay),
		answerDelay:     orDefault(cfg.AnswerDelay, defaultAnswerDelay),
		verdictDelay:    orDefault(cfg.VerdictDelay, defaultVerdictDelay),
		speechTimeout:   orDefault(cfg.SpeechTimeout, defaultSpeechTimeout),
		consumerTimeout: orDefault(cfg.ConsumerTimeout, defaultConsumerTimeout),
	}
	e.resetLocked()
	return e, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Open toggles the interaction surface and returns the new visibility. The
// first time the surface is shown it greets the user and schedules the first
// question. Opening again never restarts the questionnaire.
func (e *Engine) Open(ctx context.Context) bool {
	e.mu.Lock()
	if e.state.Visible {
		e.hideLocked()
		e.mu.Unlock()
		return false
	}
	fx := e.showLocked(ctx)
	e.mu.Unlock()

	e.apply(ctx, fx)
	return true
}

// Show makes the surface visible and returns the session as it was before
// the call. A surface that is already visible is left alone.
func (e *Engine) Show(ctx context.Context) model.SessionState {
	e.mu.Lock()
	prev := e.snapshotLocked()
	var fx effects
	if !prev.Visible {
		fx = e.showLocked(ctx)
	}
	e.mu.Unlock()

	e.apply(ctx, fx)
	return prev
}

// Hide hides the surface and reports whether it was visible.
func (e *Engine) Hide() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.Visible {
		return false
	}
	e.hideLocked()
	return true
}

func (e *Engine) hideLocked() {
	e.state.Visible = false
	e.logger.Debug().Str("phase", e.state.Phase.String()).Msg("surface hidden")
}

func (e *Engine) showLocked(ctx context.Context) effects {
	e.state.Visible = true
	var fx effects
	if !e.state.Started {
		e.state.Started = true
		e.state.Phase = model.PhaseGreeting
		e.emitLocked(ctx, model.SpeakerBot, msgGreeting)
		fx.speech = append(fx.speech, speechGreeting)
		e.scheduleLocked(ctx, e.greetingDelay, e.advanceLocked)
		e.metrics.SessionStarted()
		e.logger.Info().Msg("session started")
	}
	return fx
}

// Submit records an answer to the current question and schedules the next
// bot turn. It leaves the state untouched and returns ErrEmptyInput for
// blank input, ErrNotStarted before the first Open, ErrFinished once every
// question is answered and ErrBusy while the next question is still pending.
func (e *Engine) Submit(ctx context.Context, raw string) error {
	answer := Normalize(raw)
	if answer == "" {
		e.metrics.SubmissionRejected("empty")
		return model.ErrEmptyInput
	}

	e.mu.Lock()
	if err := e.acceptLocked(); err != nil {
		e.mu.Unlock()
		e.metrics.SubmissionRejected(rejectReason(err))
		return err
	}

	q := e.questions[e.state.Cursor]
	e.emitLocked(ctx, model.SpeakerUser, answer)
	e.state.Answers[q.ID] = answer
	e.metrics.AnswerRecorded(q.ID)

	t := evaluate(e.rules, q.ID, answer)
	var fx effects
	if t.Notice != "" {
		e.emitLocked(ctx, model.SpeakerBot, t.Notice)
		if t.Speech != "" {
			fx.speech = append(fx.speech, t.Speech)
		}
	}
	if t.Step > 1 {
		e.metrics.HistorySkipped()
	}
	e.state.Cursor += t.Step
	e.logger.Debug().
		Str("question", q.ID).
		Int("step", t.Step).
		Int("cursor", e.state.Cursor).
		Msg("answer recorded")

	e.scheduleLocked(ctx, e.answerDelay, e.advanceLocked)
	e.mu.Unlock()

	e.apply(ctx, fx)
	return nil
}

func (e *Engine) acceptLocked() error {
	switch {
	case !e.state.Started:
		return model.ErrNotStarted
	case e.state.Cursor >= len(e.questions):
		return model.ErrFinished
	case e.state.Pending:
		return model.ErrBusy
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrBusy):
		return "busy"
	case errors.Is(err, model.ErrFinished):
		return "finished"
	case errors.Is(err, model.ErrNotStarted):
		return "not_started"
	default:
		return "other"
	}
}

// Reset cancels any pending step and returns the session to Idle with a new
// session id. The surface is hidden.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	e.resetLocked()
	e.logger.Info().Msg("session reset")
}

// Close cancels the pending step, if any. The state is kept, so a session
// closed while waiting stays busy until Reset.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
}

// State returns a snapshot of the session.
func (e *Engine) State() model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() model.SessionState {
	s := e.state
	s.Answers = e.state.Answers.Clone()
	return s
}

// SessionID identifies the current pass through the questionnaire.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Questions returns the questionnaire the engine asks.
func (e *Engine) Questions() []model.Question {
	return append([]model.Question(nil), e.questions...)
}

func (e *Engine) resetLocked() {
	e.state = model.NewSessionState()
	e.sessionID = uuid.NewString()
	e.logger = e.base.With().
		Str("session_id", e.sessionID).
		Int64("user_id", e.userID).
		Logger()
}

func (e *Engine) cancelLocked() {
	if e.stop != nil {
		e.stop()
		e.stop = nil
	}
	e.gen++
}

// scheduleLocked defers step. Only one step is pending at a time; a step
// scheduled before a Reset or Close is dropped when it fires.
func (e *Engine) scheduleLocked(ctx context.Context, d time.Duration, step func(context.Context) effects) {
	gen := e.gen
	e.state.Pending = true
	ctx = context.WithoutCancel(ctx)

	e.stop = e.sched.AfterFunc(d, func() {
		e.mu.Lock()
		if gen != e.gen {
			e.mu.Unlock()
			return
		}
		e.state.Pending = false
		e.stop = nil
		fx := step(ctx)
		e.mu.Unlock()

		e.apply(ctx, fx)
	})
}

// advanceLocked presents the question at the cursor, or runs the finishing
// sequence once the cursor has left the questionnaire.
func (e *Engine) advanceLocked(ctx context.Context) effects {
	if e.state.Cursor < len(e.questions) {
		q := e.questions[e.state.Cursor]
		e.state.Phase = model.PhaseAsking
		e.emitLocked(ctx, model.SpeakerBot, q.Prompt)
		return effects{speech: []string{q.Prompt}}
	}
	return e.finishLocked(ctx)
}

func (e *Engine) finishLocked(ctx context.Context) effects {
	if e.state.Phase == model.PhaseFinishing || e.state.Phase == model.PhaseDone {
		return effects{}
	}
	e.state.Phase = model.PhaseFinishing
	e.emitLocked(ctx, model.SpeakerBot, msgThanks)
	e.scheduleLocked(ctx, e.verdictDelay, e.verdictLocked)
	return effects{speech: []string{speechThanks}}
}

func (e *Engine) verdictLocked(ctx context.Context) effects {
	verdict, ageParsed := Decide(e.state.Answers)

	text, speech := msgPossiblyEligible, speechPossiblyEligible
	if verdict == model.VerdictNotEligible {
		text, speech = msgNotEligible, speechNotEligible
	}
	e.emitLocked(ctx, model.SpeakerBot, text)
	e.state.Phase = model.PhaseDone
	e.metrics.VerdictReached(string(verdict), ageParsed)

	ev := e.logger.Info().
		Str("verdict", string(verdict)).
		Interface("answers", e.state.Answers)
	if !ageParsed {
		ev = ev.Bool("age_unparsed", true)
	}
	ev.Msg("screening finished")

	return effects{
		speech: []string{speech},
		screening: &model.Screening{
			ID:          e.sessionID,
			UserID:      e.userID,
			Answers:     e.state.Answers.Clone(),
			Verdict:     verdict,
			AgeParsed:   ageParsed,
			CompletedAt: e.now().UTC(),
		},
	}
}

func (e *Engine) emitLocked(ctx context.Context, speaker model.Speaker, text string) {
	if err := e.out.Emit(ctx, model.Message{Speaker: speaker, Text: text}); err != nil {
		e.metrics.SideChannelFailed(metrics.ChannelOutput)
		e.logger.Warn().Err(err).Str("speaker", string(speaker)).Msg("error emitting message")
	}
}

// apply runs speech and the consumer hand-off outside the lock.
func (e *Engine) apply(ctx context.Context, fx effects) {
	if e.voice != nil {
		for _, text := range fx.speech {
			e.speak(ctx, text)
		}
	}
	if fx.screening != nil && e.consumer != nil {
		cctx, cancel := context.WithTimeout(ctx, e.consumerTimeout)
		err := e.consumer.Consume(cctx, *fx.screening)
		cancel()
		if err != nil {
			e.metrics.SideChannelFailed(metrics.ChannelConsumer)
			e.sessionLogger().Error().Err(err).Str("screening_id", fx.screening.ID).Msg("error handing off screening")
		}
	}
}

func (e *Engine) speak(ctx context.Context, text string) {
	sctx, cancel := context.WithTimeout(ctx, e.speechTimeout)
	defer cancel()
	if err := e.voice.Speak(sctx, text); err != nil {
		e.metrics.SideChannelFailed(metrics.ChannelSpeech)
		e.sessionLogger().Warn().Err(err).Msg("error speaking")
	}
}

func (e *Engine) sessionLogger() *zerolog.Logger {
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.logger
	return &l
}
