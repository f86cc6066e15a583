package handler

import (
	"DonorBot/flow"
	"DonorBot/metrics"
	"DonorBot/model"
	"DonorBot/repo"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultHistoryLimit = 5
	defaultSendTimeout  = 10 * time.Second
)

// Sender is the part of *bot.Bot the handler talks to.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// Options configure the engines the handler creates for each chat.
type Options struct {
	Questions []model.Question
	Scheduler flow.Scheduler
	Metrics   *metrics.Collector
	Logger    *zerolog.Logger

	GreetingDelay time.Duration
	AnswerDelay   time.Duration
	VerdictDelay  time.Duration

	HistoryLimit int
	SendTimeout  time.Duration // per Telegram call made on behalf of an engine
}

type DonorBotHandler struct {
	Store repo.ScreeningStore

	opts   Options
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*flow.Engine // by chat id
}

func NewDonorBotHandler(store repo.ScreeningStore, opts Options) *DonorBotHandler {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.Questions == nil {
		opts.Questions = model.DefaultQuestions()
	}
	return &DonorBotHandler{
		Store:    store,
		opts:     opts,
		logger:   logger,
		sessions: make(map[int64]*flow.Engine),
	}
}

// Handler is the bot.HandlerFunc for every incoming update.
func (h *DonorBotHandler) Handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handle(ctx, b, update)
}

func (h *DonorBotHandler) handle(ctx context.Context, s Sender, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)

	h.logger.Debug().
		Int64("chat_id", chatID).
		Str("username", update.Message.From.Username).
		Str("text", text).
		Msg("update received")

	var reply string
	switch text {
	case "/start":
		engine, err := h.session(s, chatID, userID)
		if err != nil {
			h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("error creating session")
			reply = "Something went wrong. Please try again later."
			break
		}
		st := engine.Show(ctx)
		if st.Visible {
			reply = "The questionnaire is already open. Just type your answer."
			break
		}
		if !st.Started {
			return
		}
		reply = "Welcome back! Answer the last question to continue."
		if st.Phase == model.PhaseDone {
			reply = "Welcome back! Send /reset to take the questionnaire again."
		}
	case "/hide":
		engine := h.existing(chatID)
		if engine == nil || !engine.Hide() {
			reply = "Nothing to hide. Send /start to open the questionnaire."
			break
		}
		reply = "Questionnaire hidden. Send /start to continue where you left off."
	case "/reset":
		if engine := h.existing(chatID); engine != nil {
			engine.Reset()
		}
		reply = "Questionnaire reset. Send /start to begin again."
	case "/history":
		h.historyHandler(ctx, s, chatID, userID)
		return
	case "/report":
		h.reportHandler(ctx, s, chatID, userID)
		return
	case "/help":
		reply = `Commands:
/start – Open the blood donation eligibility questionnaire.
/hide – Hide the questionnaire without losing your answers.
/reset – Throw away your answers and start over.
/history – See your past screening results.
/report – Show every answer from your latest screening.
/help – Show this message.`
	default:
		reply = h.answer(ctx, chatID, text)
		if reply == "" {
			return
		}
	}

	h.send(ctx, s, chatID, reply)
}

// answer submits text to the chat's engine and returns the reply for
// rejected input, or "" when the engine will answer on its own.
func (h *DonorBotHandler) answer(ctx context.Context, chatID int64, text string) string {
	engine := h.existing(chatID)
	if engine == nil || !engine.State().Visible {
		return "Send /start to open the blood donation questionnaire."
	}

	err := engine.Submit(ctx, text)
	switch {
	case err == nil, errors.Is(err, model.ErrEmptyInput):
		return ""
	case errors.Is(err, model.ErrBusy):
		return "One moment please…"
	case errors.Is(err, model.ErrFinished):
		return "You have answered all questions. Send /reset to start over or /history to see your results."
	case errors.Is(err, model.ErrNotStarted):
		return "Send /start to open the blood donation questionnaire."
	default:
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("error submitting answer")
		return "Something went wrong. Please try again."
	}
}

func (h *DonorBotHandler) historyHandler(ctx context.Context, s Sender, chatID, userID int64) {
	if h.Store == nil {
		h.send(ctx, s, chatID, "Screening history is not available.")
		return
	}

	list, err := h.Store.ListScreenings(ctx, userID, h.opts.HistoryLimit)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("error listing screenings")
		h.send(ctx, s, chatID, "Error retrieving your screenings. Please try again later.")
		return
	}
	if len(list) == 0 {
		h.send(ctx, s, chatID, "You have no finished screenings yet. Send /start to take one.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Here are your latest screenings:\n")
	for _, sc := range list {
		fmt.Fprintf(&sb, "- %s: %s", sc.CompletedAt.Format("2006-01-02 15:04"), verdictText(sc.Verdict))
		if !sc.AgeParsed {
			sb.WriteString(" (age not understood)")
		}
		sb.WriteString("\n")
	}
	h.send(ctx, s, chatID, sb.String())
}

// reportHandler shows the answers of the user's latest screening.
func (h *DonorBotHandler) reportHandler(ctx context.Context, s Sender, chatID, userID int64) {
	if h.Store == nil {
		h.send(ctx, s, chatID, "Screening reports are not available.")
		return
	}

	sc, err := h.latestScreening(ctx, userID)
	if errors.Is(err, model.ErrScreeningNotFound) {
		h.send(ctx, s, chatID, "You have no screening yet. Send /start to take one.")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("error reading screening")
		h.send(ctx, s, chatID, "Error retrieving your report. Please try again later.")
		return
	}

	h.send(ctx, s, chatID, formatReport(h.opts.Questions, sc))
}

func (h *DonorBotHandler) latestScreening(ctx context.Context, userID int64) (*model.Screening, error) {
	list, err := h.Store.ListScreenings(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, model.ErrScreeningNotFound
	}
	return h.Store.ReadScreening(ctx, list[0].ID)
}

func formatReport(questions []model.Question, sc *model.Screening) string {
	var sb strings.Builder
	sb.WriteString("Blood Donation Eligibility Report\n\n")
	for _, q := range questions {
		answer, ok := sc.Answers[q.ID]
		if !ok {
			answer = "(skipped)"
		}
		fmt.Fprintf(&sb, "%s\n%s\n\n", q.Prompt, answer)
	}
	fmt.Fprintf(&sb, "Result: %s", verdictText(sc.Verdict))
	if !sc.AgeParsed {
		sb.WriteString(" (age not understood)")
	}
	fmt.Fprintf(&sb, "\nDate: %s", sc.CompletedAt.Format("2006-01-02 15:04"))
	return sb.String()
}

func verdictText(v model.Verdict) string {
	switch v {
	case model.VerdictNotEligible:
		return "not eligible"
	case model.VerdictPossiblyEligible:
		return "possibly eligible"
	default:
		return string(v)
	}
}

// session returns the chat's engine, creating it on first use.
func (h *DonorBotHandler) session(s Sender, chatID, userID int64) (*flow.Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if engine, ok := h.sessions[chatID]; ok {
		return engine, nil
	}

	logger := h.logger.With().Int64("chat_id", chatID).Logger()
	cfg := flow.Config{
		Questions:     h.opts.Questions,
		Scheduler:     h.opts.Scheduler,
		Output:        &telegramOutput{sender: s, chatID: chatID, timeout: h.opts.SendTimeout, logger: logger},
		Voice:         &chatActionVoice{sender: s, chatID: chatID, logger: logger},
		UserID:        userID,
		Logger:        &logger,
		Metrics:       h.opts.Metrics,
		GreetingDelay: h.opts.GreetingDelay,
		AnswerDelay:   h.opts.AnswerDelay,
		VerdictDelay:  h.opts.VerdictDelay,
	}
	if h.Store != nil {
		cfg.Consumer = h.Store
	}

	engine, err := flow.New(cfg)
	if err != nil {
		return nil, err
	}
	h.sessions[chatID] = engine
	return engine, nil
}

func (h *DonorBotHandler) existing(chatID int64) *flow.Engine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessions[chatID]
}

// Close stops the pending steps of every session.
func (h *DonorBotHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, engine := range h.sessions {
		engine.Close()
	}
}

func (h *DonorBotHandler) send(ctx context.Context, s Sender, chatID int64, text string) {
	_, err := s.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("error sending message")
	}
}

// telegramOutput posts bot messages to the chat. The user's own messages
// are already in the chat, so they are only logged. Emit runs under the
// engine's lock, so every send is bounded by timeout.
type telegramOutput struct {
	sender  Sender
	chatID  int64
	timeout time.Duration
	logger  zerolog.Logger
}

func (o *telegramOutput) Emit(ctx context.Context, msg model.Message) error {
	if msg.Speaker == model.SpeakerUser {
		o.logger.Debug().Str("answer", msg.Text).Msg("user answered")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	_, err := o.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: o.chatID,
		Text:   msg.Text,
	})
	return err
}

// chatActionVoice stands in for speech on Telegram: the chat shows the bot
// recording a voice message while it "speaks".
type chatActionVoice struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

func (v *chatActionVoice) Speak(ctx context.Context, text string) error {
	v.logger.Debug().Str("utterance", text).Msg("speaking")
	_, err := v.sender.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: v.chatID,
		Action: models.ChatActionRecordVoice,
	})
	return err
}
