package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodus-reseau/leadform/pkg/adapters/formpost"
	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/ports"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

// lockedBuffer is a bytes.Buffer safe for the handler writes and the test reads.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type formEndpoint struct {
	mu    sync.Mutex
	posts []url.Values
}

func (e *formEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	e.mu.Lock()
	e.posts = append(e.posts, r.PostForm)
	e.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (e *formEndpoint) Posts() []url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]url.Values(nil), e.posts...)
}

func lines(ls ...string) *strings.Reader {
	return strings.NewReader(strings.Join(ls, "\n") + "\n")
}

func run(t *testing.T, input *strings.Reader, sub ports.Submitter, opts ...Option) string {
	t.Helper()
	out := &lockedBuffer{}
	base := []Option{
		WithInputHandler(NewTextHandler(input, out)),
		WithSelectDelay(0),
		WithControllerOptions(wizard.WithSplashDelay(0), wizard.WithSubmitter(sub)),
	}
	r := NewRunner(append(base, opts...)...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Run(ctx))
	return out.String()
}

func TestRun_SubmitsAllFieldsOnce(t *testing.T) {
	endpoint := &formEndpoint{}
	ts := httptest.NewServer(endpoint)
	defer ts.Close()

	out := run(t,
		lines("Durand", "Léa", "0612345678", "lea@example.fr", "2", "7", CmdSubmit),
		formpost.New(ts.URL),
		WithQuery(url.Values{"source": {"salon"}}),
	)

	assert.Contains(t, out, "Source: salon")
	assert.Contains(t, out, "Étape 1 sur 5")
	assert.Contains(t, out, "Étape 6 sur 6")
	assert.Contains(t, out, "Récapitulatif")
	assert.Contains(t, out, "Lycéen")
	assert.Contains(t, out, "Terminale")
	assert.Contains(t, out, domain.SuccessNotice.Message)

	posts := endpoint.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, url.Values{
		"nom":          {"Durand"},
		"prenom":       {"Léa"},
		"telephone":    {"0612345678"},
		"email":        {"lea@example.fr"},
		"typePersonne": {"lyceen"},
		"classe":       {"terminale"},
		"source":       {"salon"},
	}, posts[0])
}

func TestRun_EditFromRecap(t *testing.T) {
	sub := &countingSubmitter{}
	out := run(t,
		lines("Durand", "Léa", "0612345678", "lea@example.fr", "professeur",
			"1", "Dupont", "", "", "", "", CmdSubmit),
		sub,
	)

	assert.Contains(t, out, "Réponse actuelle : Durand")
	require.Len(t, sub.calls, 1)
	assert.Equal(t, "Dupont", sub.calls[0].Get(domain.FieldNom))
	assert.Equal(t, "Léa", sub.calls[0].Get(domain.FieldPrenom))
	assert.Empty(t, sub.calls[0].Get(domain.FieldClasse))
}

func TestRun_AutoAdvanceAfterSelectDelay(t *testing.T) {
	sub := &countingSubmitter{}
	out := run(t,
		lines("Martin", "Paul", "0700000000", "paul@example.fr", "parent", "6ème, 3ème", CmdSubmit),
		sub,
		WithSelectDelay(10*time.Millisecond),
	)

	assert.Contains(t, out, "Dans quelle(s) classe(s)")
	require.Len(t, sub.calls, 1)
	assert.Equal(t, "parent", sub.calls[0].Get(domain.FieldTypePersonne))
	assert.Equal(t, "6ème, 3ème", sub.calls[0].Get(domain.FieldClasse))
}

func TestRun_DelayedSelectGrowsStepList(t *testing.T) {
	sub := &countingSubmitter{}
	out := run(t,
		lines("Durand", "Léa", "0612345678", "lea@example.fr", "1", "1", CmdSubmit),
		sub,
		WithSelectDelay(20*time.Millisecond),
	)

	assert.Contains(t, out, "Étape 5 sur 5")
	assert.NotContains(t, out, "Étape 5 sur 6")
	assert.Contains(t, out, "Quelle est votre classe actuelle ?")
	assert.NotContains(t, out, "Choix inconnu")
	require.Len(t, sub.calls, 1)
	assert.Equal(t, "collegien", sub.calls[0].Get(domain.FieldTypePersonne))
	assert.Equal(t, "6eme", sub.calls[0].Get(domain.FieldClasse))
}

func TestRun_RetreatAndUnknownOption(t *testing.T) {
	sub := &countingSubmitter{}
	out := run(t,
		lines("Martin", CmdBack, "", "Paul", "0700000000", "paul@example.fr", "9", "4", CmdSubmit),
		sub,
	)

	assert.Contains(t, out, "Réponse actuelle : Martin")
	assert.Contains(t, out, "Choix inconnu")
	require.Len(t, sub.calls, 1)
	assert.Equal(t, "professeur", sub.calls[0].Get(domain.FieldTypePersonne))
}

func TestRun_RetryAfterTransportFailure(t *testing.T) {
	sub := &countingSubmitter{failures: 1}
	out := run(t,
		lines("A", "B", "0600000000", "a@b.fr", "4", CmdSubmit, CmdSubmit),
		sub,
	)

	assert.Contains(t, out, domain.FailureNotice.Message)
	assert.Contains(t, out, domain.SuccessNotice.Message)
	assert.Less(t, strings.Index(out, domain.FailureNotice.Message), strings.Index(out, domain.SuccessNotice.Message))
	assert.Len(t, sub.calls, 2)
}

func TestRun_EndOfInputWithoutSubmitting(t *testing.T) {
	sub := &countingSubmitter{}
	out := run(t, lines("Durand", "Léa"), sub)

	assert.Contains(t, out, "prénom")
	assert.Empty(t, sub.calls)
}

func TestRun_Quit(t *testing.T) {
	sub := &countingSubmitter{}
	out := run(t, lines("A", "B", "0600000000", "a@b.fr", "4", CmdQuit, CmdSubmit), sub)

	assert.Contains(t, out, "Récapitulatif")
	assert.Empty(t, sub.calls)
}

func TestRun_UnknownRecapCommand(t *testing.T) {
	sub := &countingSubmitter{}
	out := run(t, lines("A", "B", "0600000000", "a@b.fr", "4", "envoyer", CmdSubmit), sub)

	assert.Contains(t, out, "Commande inconnue")
	assert.Len(t, sub.calls, 1)
}

func TestRun_JSONHandler(t *testing.T) {
	sub := &countingSubmitter{}
	out := &lockedBuffer{}
	r := NewRunner(
		WithInputHandler(NewJSONHandler(lines(`"Durand"`, "Léa", "0612345678", "lea@example.fr", `"4"`, CmdSubmit), out)),
		WithSelectDelay(0),
		WithControllerOptions(wizard.WithSplashDelay(0), wizard.WithSubmitter(sub)),
	)
	require.NoError(t, r.Run(context.Background()))

	var views []wizard.View
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var v wizard.View
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &v))
		views = append(views, v)
	}
	require.NotEmpty(t, views)
	assert.Equal(t, domain.PhaseActive, views[0].Phase)
	final := views[len(views)-1]
	assert.Equal(t, domain.PhaseSubmitted, final.Phase)
	require.NotNil(t, final.Notice)
	assert.Equal(t, domain.NoticeSuccess, final.Notice.Kind)
	require.Len(t, sub.calls, 1)
	assert.Equal(t, "Durand", sub.calls[0].Get(domain.FieldNom))
}

func TestRun_CancelledContext(t *testing.T) {
	out := &lockedBuffer{}
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewRunner(
		WithInputHandler(NewTextHandler(pr, out)),
		WithControllerOptions(wizard.WithSplashDelay(0)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "> ") }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Contains(t, out.String(), "Formulaire interrompu.")
}

type countingSubmitter struct {
	mu       sync.Mutex
	calls    []domain.Answers
	failures int
}

func (s *countingSubmitter) Submit(_ context.Context, answers domain.Answers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, answers)
	if len(s.calls) <= s.failures {
		return fmt.Errorf("%w: connection reset", domain.ErrTransport)
	}
	return nil
}
