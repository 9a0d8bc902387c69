// Package telegram serves the lead form as a Telegram conversation.
//
// Free-text steps are answered by sending a message, choice steps and recap
// edits through inline keyboards. Each chat owns one session.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/runner"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// Callback data prefixes of the inline keyboards.
const (
	cbBack   = "back"
	cbSubmit = "submit"
	cbSelect = "select:"
	cbEdit   = "edit:"
)

// Messenger is the part of the Bot API the handler talks to. *bot.Bot implements it.
type Messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Handler maps Telegram updates to session commands.
type Handler struct {
	sessions      *wizard.Sessions
	logger        *slog.Logger
	defaultSource string
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithDefaultSource sets the source recorded when /start carries no payload.
func WithDefaultSource(source string) Option {
	return func(h *Handler) {
		h.defaultSource = source
	}
}

// NewHandler creates a handler over sessions.
func NewHandler(sessions *wizard.Sessions, opts ...Option) *Handler {
	h := &Handler{
		sessions:      sessions,
		logger:        logging.NewNop(),
		defaultSource: "telegram",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve long-polls the Bot API with token until ctx is cancelled.
func (h *Handler) Serve(ctx context.Context, token string) error {
	b, err := bot.New(token, bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		h.Handle(ctx, b, update)
	}))
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	h.logger.Info("telegram bot started")
	b.Start(ctx)
	return nil
}

// SessionID is the session of a chat.
func SessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// Handle processes one update.
func (h *Handler) Handle(ctx context.Context, m Messenger, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, m, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, m, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, m Messenger, msg *models.Message) {
	chatID := msg.Chat.ID
	id := SessionID(chatID)
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start" || strings.HasPrefix(text, "/start "):
		source := strings.TrimSpace(strings.TrimPrefix(text, "/start"))
		if source == "" {
			source = h.defaultSource
		}
		view, err := h.sessions.Start(ctx, id, source)
		h.reply(ctx, m, chatID, view, err)
		if err == nil && view.Phase == domain.PhaseLoading {
			go h.revealAfterSplash(ctx, m, chatID, view)
		}
	case text == "/retour":
		view, err := h.sessions.Retreat(ctx, id)
		h.reply(ctx, m, chatID, view, err)
	case text == "/etape":
		view, err := h.sessions.View(ctx, id)
		h.reply(ctx, m, chatID, view, err)
	default:
		h.answer(ctx, m, chatID, msg.Text)
	}
}

// revealAfterSplash sends the first question once the splash delay of view
// has passed. It gives up when ctx is cancelled.
func (h *Handler) revealAfterSplash(ctx context.Context, m Messenger, chatID int64, view wizard.View) {
	id := SessionID(chatID)
	for view.Phase == domain.PhaseLoading {
		// ReadyInMs is truncated; the extra millisecond lands past ReadyAt.
		t := time.NewTimer(time.Duration(view.ReadyInMs)*time.Millisecond + time.Millisecond)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		var err error
		if view, err = h.sessions.View(ctx, id); err != nil {
			h.logger.Debug("telegram splash ended without session", "session_id", id, "err", err)
			return
		}
	}
	if view.Phase != domain.PhaseActive || view.Cursor != 0 {
		return
	}
	h.reply(ctx, m, chatID, view, nil)
}

// answer treats a plain message as the answer of the displayed free-text step.
func (h *Handler) answer(ctx context.Context, m Messenger, chatID int64, raw string) {
	id := SessionID(chatID)
	view, err := h.sessions.View(ctx, id)
	if err != nil {
		h.reply(ctx, m, chatID, view, err)
		return
	}
	if view.Step == nil {
		h.reply(ctx, m, chatID, view, nil)
		return
	}
	if view.Step.IsChoice() {
		h.send(ctx, m, chatID, "Choisissez une réponse avec les boutons ci-dessous.", nil)
		h.reply(ctx, m, chatID, view, nil)
		return
	}

	value, err := runner.SanitizeInput(raw)
	if err != nil {
		h.logger.Warn("telegram input rejected", "session_id", id, "size", len(raw), "err", err)
		h.send(ctx, m, chatID, "Réponse trop longue ou illisible, réessayez.", nil)
		return
	}
	if _, err := h.sessions.Answer(ctx, id, value); err != nil {
		h.reply(ctx, m, chatID, wizard.View{}, err)
		return
	}
	view, err = h.sessions.Advance(ctx, id)
	h.reply(ctx, m, chatID, view, err)
}

func (h *Handler) handleCallback(ctx context.Context, m Messenger, cq *models.CallbackQuery) {
	if _, err := m.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		h.logger.Warn("answer callback query", "err", err)
	}

	chatID := cq.From.ID
	if cq.Message.Message != nil {
		chatID = cq.Message.Message.Chat.ID
	}
	id := SessionID(chatID)

	var (
		view wizard.View
		err  error
	)
	switch data := cq.Data; {
	case data == cbBack:
		view, err = h.sessions.Retreat(ctx, id)
	case data == cbSubmit:
		var notice domain.Notice
		view, notice, err = h.sessions.Submit(ctx, id)
		if notice.Kind != "" {
			h.send(ctx, m, chatID, notice.Message, nil)
			if notice.Kind == domain.NoticeFailure {
				h.logger.Warn("telegram submission failed", "session_id", id, "err", err)
				// The recap is shown again so the respondent can retry.
				h.reply(ctx, m, chatID, view, nil)
			}
			return
		}
	case strings.HasPrefix(data, cbSelect):
		view, err = h.sessions.Select(ctx, id, strings.TrimPrefix(data, cbSelect), true)
	case strings.HasPrefix(data, cbEdit):
		index, convErr := strconv.Atoi(strings.TrimPrefix(data, cbEdit))
		if convErr != nil {
			h.logger.Warn("malformed edit callback", "data", data)
			return
		}
		view, err = h.sessions.JumpTo(ctx, id, index)
	default:
		h.logger.Warn("unknown callback", "data", data)
		return
	}
	h.reply(ctx, m, chatID, view, err)
}

// reply renders view, or explains err to the respondent.
func (h *Handler) reply(ctx context.Context, m Messenger, chatID int64, view wizard.View, err error) {
	if err != nil {
		h.logger.Debug("telegram command rejected", "chat_id", chatID, "err", err)
		h.send(ctx, m, chatID, errorText(err), nil)
		return
	}
	text, markup := Render(view)
	h.send(ctx, m, chatID, text, markup)
}

func (h *Handler) send(ctx context.Context, m Messenger, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := m.SendMessage(ctx, params); err != nil {
		h.logger.Error("send telegram message", "chat_id", chatID, "err", err)
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Envoyez /start pour commencer."
	case errors.Is(err, domain.ErrLoading):
		return "Le formulaire se charge, un instant…"
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "Votre formulaire a déjà été envoyé. Envoyez /start pour recommencer."
	case errors.Is(err, domain.ErrUnknownOption), errors.Is(err, domain.ErrNotChoiceStep):
		return "Cette réponse n'est plus disponible, choisissez à nouveau."
	default:
		return "Action impossible pour le moment."
	}
}

// Render formats a view as a chat message with its inline keyboard.
func Render(v wizard.View) (string, models.ReplyMarkup) {
	var b strings.Builder
	switch v.Phase {
	case domain.PhaseLoading:
		b.WriteString("Chargement du formulaire…")
		return b.String(), nil

	case domain.PhaseActive:
		if v.SourceLabel != "" {
			fmt.Fprintf(&b, "%s\n", v.SourceLabel)
		}
		fmt.Fprintf(&b, "%s\n\n%s", v.Progress.Label, v.Step.Prompt)
		var rows [][]models.InlineKeyboardButton
		if v.Step.IsChoice() {
			for _, opt := range v.Step.Options {
				text := opt.Label
				if opt.Value == v.Step.Value {
					text = "✓ " + text
				}
				rows = append(rows, []models.InlineKeyboardButton{{Text: text, CallbackData: cbSelect + opt.Value}})
			}
		} else {
			if v.Step.Value != "" {
				fmt.Fprintf(&b, "\n(actuel : %s)", v.Step.Value)
			} else if v.Step.Placeholder != "" {
				fmt.Fprintf(&b, "\n(ex. %s)", v.Step.Placeholder)
			}
		}
		if v.Step.CanRetreat {
			rows = append(rows, []models.InlineKeyboardButton{{Text: "◀ Retour", CallbackData: cbBack}})
		}
		if len(rows) == 0 {
			return b.String(), nil
		}
		return b.String(), &models.InlineKeyboardMarkup{InlineKeyboard: rows}

	case domain.PhaseRecap, domain.PhaseSubmitted:
		b.WriteString("Récapitulatif")
		rows := make([][]models.InlineKeyboardButton, 0, len(v.Recap)+1)
		for _, line := range v.Recap {
			fmt.Fprintf(&b, "\n%s %s", line.Prompt, line.Label)
			if v.CanSubmit {
				rows = append(rows, []models.InlineKeyboardButton{{
					Text:         "Modifier : " + line.Prompt,
					CallbackData: cbEdit + strconv.Itoa(line.Index),
				}})
			}
		}
		if !v.CanSubmit {
			return b.String(), nil
		}
		rows = append(rows, []models.InlineKeyboardButton{{Text: "Envoyer", CallbackData: cbSubmit}})
		return b.String(), &models.InlineKeyboardMarkup{InlineKeyboard: rows}
	}
	return "", nil
}
