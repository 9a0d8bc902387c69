package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodus-reseau/leadform/pkg/adapters/memory"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/session"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

const chatID = int64(42)

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []*bot.SendMessageParams
	answered []string
}

func (f *fakeMessenger) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params)
	return &models.Message{}, nil
}

func (f *fakeMessenger) AnswerCallbackQuery(_ context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, params.CallbackQueryID)
	return true, nil
}

func (f *fakeMessenger) last(t *testing.T) *bot.SendMessageParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) buttons(t *testing.T) []string {
	t.Helper()
	markup, ok := f.last(t).ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var data []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			data = append(data, b.CallbackData)
		}
	}
	return data
}

type endpoint struct {
	calls []domain.Answers
	err   error
}

func (e *endpoint) Submit(_ context.Context, answers domain.Answers) error {
	e.calls = append(e.calls, answers)
	return e.err
}

func newHandler(e *endpoint) *Handler {
	return newHandlerWithSplash(e, 0)
}

func newHandlerWithSplash(e *endpoint, splash time.Duration) *Handler {
	mgr := session.NewManager(memory.NewStore(), session.WithSplashDelay(splash))
	return NewHandler(wizard.NewSessions(mgr, wizard.Deliverer{Submitter: e}))
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, p := range f.sent {
		out[i] = p.Text
	}
	return out
}

// start opens a session and waits for the first question.
func start(t *testing.T, h *Handler, m *fakeMessenger, cmd string) {
	t.Helper()
	text(h, m, cmd)
	require.Eventually(t, func() bool {
		texts := m.texts()
		return len(texts) > 0 && strings.Contains(texts[len(texts)-1], "Quel est votre nom ?")
	}, time.Second, 2*time.Millisecond)
}

func text(h *Handler, m *fakeMessenger, s string) {
	h.Handle(context.Background(), m, &models.Update{Message: &models.Message{
		Chat: models.Chat{ID: chatID},
		Text: s,
	}})
}

func press(h *Handler, m *fakeMessenger, data string) {
	h.Handle(context.Background(), m, &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:      "cb-" + data,
		From:    models.User{ID: chatID},
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: chatID}}},
		Data:    data,
	}})
}

func TestConversation_Lyceen(t *testing.T) {
	e := &endpoint{}
	h := newHandler(e)
	m := &fakeMessenger{}

	start(t, h, m, "/start salon")
	assert.Contains(t, m.texts()[0], "Chargement")
	last := m.last(t)
	assert.Equal(t, chatID, last.ChatID)
	assert.Contains(t, last.Text, "Source: salon")
	assert.Contains(t, last.Text, "Quel est votre nom ?")

	text(h, m, "Durand")
	assert.Contains(t, m.last(t).Text, "prénom")
	assert.Contains(t, m.buttons(t), cbBack)

	text(h, m, "Léa")
	text(h, m, "0612345678")
	text(h, m, "lea@example.fr")
	assert.Contains(t, m.last(t).Text, "Vous êtes")
	assert.Equal(t, []string{"select:collegien", "select:lyceen", "select:parent", "select:professeur", cbBack}, m.buttons(t))

	// Typing on a choice step re-sends the keyboard.
	text(h, m, "lycéen")
	assert.Contains(t, m.last(t).Text, "Vous êtes")

	press(h, m, "select:lyceen")
	assert.Contains(t, m.last(t).Text, "classe actuelle")

	press(h, m, "select:terminale")
	recap := m.last(t)
	assert.Contains(t, recap.Text, "Récapitulatif")
	assert.Contains(t, recap.Text, "Lycéen")
	assert.Contains(t, recap.Text, "Terminale")
	assert.Contains(t, m.buttons(t), "edit:0")
	assert.Contains(t, m.buttons(t), cbSubmit)

	press(h, m, "edit:0")
	assert.Contains(t, m.last(t).Text, "(actuel : Durand)")
	text(h, m, "Dupont")
	press(h, m, "edit:6")
	assert.Contains(t, m.last(t).Text, "Dupont")

	press(h, m, cbSubmit)
	assert.Equal(t, domain.SuccessNotice.Message, m.last(t).Text)
	require.Len(t, e.calls, 1)
	assert.Equal(t, "Dupont", e.calls[0].Get(domain.FieldNom))
	assert.Equal(t, "terminale", e.calls[0].Get(domain.FieldClasse))
	assert.Equal(t, "salon", e.calls[0].Get(domain.FieldSource))

	press(h, m, cbSubmit)
	assert.Contains(t, m.last(t).Text, "déjà été envoyé")
	assert.Len(t, e.calls, 1)
	assert.Contains(t, m.answered, "cb-submit")
}

func TestConversation_DefaultSourceAndRetreat(t *testing.T) {
	e := &endpoint{}
	h := newHandler(e)
	m := &fakeMessenger{}

	start(t, h, m, "/start")
	assert.Contains(t, m.last(t).Text, "Source: telegram")

	text(h, m, "Martin")
	text(h, m, "/retour")
	assert.Contains(t, m.last(t).Text, "(actuel : Martin)")
}

func TestConversation_SubmitFailureShowsRecapAgain(t *testing.T) {
	e := &endpoint{err: fmt.Errorf("%w: refused", domain.ErrTransport)}
	h := newHandler(e)
	m := &fakeMessenger{}

	start(t, h, m, "/start")
	for _, s := range []string{"Martin", "Paul", "0700000000", "paul@example.fr"} {
		text(h, m, s)
	}
	press(h, m, "select:professeur")
	press(h, m, cbSubmit)

	m.mu.Lock()
	n := len(m.sent)
	notice := m.sent[n-2].Text
	m.mu.Unlock()
	assert.Equal(t, domain.FailureNotice.Message, notice)
	assert.Contains(t, m.last(t).Text, "Récapitulatif")
	assert.Contains(t, m.buttons(t), cbSubmit)

	e.err = nil
	press(h, m, cbSubmit)
	assert.Equal(t, domain.SuccessNotice.Message, m.last(t).Text)
	assert.Len(t, e.calls, 2)
}

func TestConversation_WithoutSession(t *testing.T) {
	h := newHandler(&endpoint{})
	m := &fakeMessenger{}

	text(h, m, "bonjour")
	assert.Equal(t, "Envoyez /start pour commencer.", m.last(t).Text)
}

func TestConversation_RejectsOversizedAnswer(t *testing.T) {
	h := newHandler(&endpoint{})
	m := &fakeMessenger{}
	start(t, h, m, "/start")

	text(h, m, strings.Repeat("x", 4096))
	assert.Contains(t, m.last(t).Text, "trop longue")
}

func TestConversation_FirstQuestionAfterSplash(t *testing.T) {
	h := newHandlerWithSplash(&endpoint{}, 30*time.Millisecond)
	m := &fakeMessenger{}

	text(h, m, "/start")
	assert.Equal(t, []string{"Chargement du formulaire…"}, m.texts())
	assert.Nil(t, m.last(t).ReplyMarkup)

	require.Eventually(t, func() bool { return len(m.texts()) == 2 }, time.Second, 2*time.Millisecond)
	assert.Contains(t, m.last(t).Text, "Quel est votre nom ?")
	assert.Contains(t, m.last(t).Text, "Étape 1 sur 5")
}

func TestConversation_SplashCancelledWithContext(t *testing.T) {
	h := newHandlerWithSplash(&endpoint{}, 30*time.Millisecond)
	m := &fakeMessenger{}

	ctx, cancel := context.WithCancel(context.Background())
	h.Handle(ctx, m, &models.Update{Message: &models.Message{Chat: models.Chat{ID: chatID}, Text: "/start"}})
	cancel()

	time.Sleep(80 * time.Millisecond)
	assert.Len(t, m.texts(), 1)
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "tg:-100123", SessionID(-100123))
}
