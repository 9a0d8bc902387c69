package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/wizard"
)

func TestFormatView_ChoiceStep(t *testing.T) {
	s := domain.Activate(domain.NewState("s1", "salon", time.Now(), 0))
	s.Cursor = 4
	s.Answers = s.Answers.With(domain.FieldTypePersonne, string(domain.PersonaParent))

	out := FormatView(wizard.NewView(s, time.Now(), 0))
	assert.Contains(t, out, "_Source: salon_")
	assert.Contains(t, out, "**Étape 5 sur 6**")
	assert.Contains(t, out, "1. Collégien\n")
	assert.Contains(t, out, "3. Parent ✓\n")
	assert.Contains(t, out, ":retour")
}

func TestFormatView_FirstStepHasPlaceholderAndNoRetreat(t *testing.T) {
	s := domain.Activate(domain.NewState("s1", domain.DefaultSource, time.Now(), 0))

	out := FormatView(wizard.NewView(s, time.Now(), 0))
	assert.NotContains(t, out, "Source:")
	assert.Contains(t, out, "Ex. : Nom")
	assert.NotContains(t, out, ":retour")
}

func TestFormatView_RecapAndNotice(t *testing.T) {
	s := domain.Activate(domain.NewState("s1", domain.DefaultSource, time.Now(), 0))
	s.Answers = s.Answers.
		With(domain.FieldNom, "Durand").
		With(domain.FieldTypePersonne, string(domain.PersonaLyceen)).
		With(domain.FieldClasse, "1re")
	s.Cursor = len(s.Steps())
	s.Phase = domain.PhaseRecap
	s = domain.RecordSubmission(s, domain.Submission{Outcome: domain.OutcomeTransportFailure, At: time.Now()})

	out := FormatView(wizard.NewView(s, time.Now(), 0))
	assert.True(t, strings.HasPrefix(out, "> "+domain.FailureNotice.Message))
	assert.Contains(t, out, "## Récapitulatif")
	assert.Contains(t, out, "1. **Quel est votre nom ?** Durand")
	assert.Contains(t, out, "6. **Quelle est votre classe actuelle ?** 1ère")
	assert.Contains(t, out, ":envoyer")
}

func TestTextHandler_RejectsInvalidUTF8AndReprompts(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader("\xff\xfe\nDurand\n"), &out)

	got, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Durand", got)
	assert.Contains(t, out.String(), "Réponse refusée")
	assert.Equal(t, 2, strings.Count(out.String(), "> "))

	_, err = h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_Renderer(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out, WithTextHandlerRenderer(func(md string) (string, error) {
		return strings.ToUpper(md), nil
	}))
	s := domain.Activate(domain.NewState("s1", domain.DefaultSource, time.Now(), 0))

	require.NoError(t, h.Output(context.Background(), wizard.NewView(s, time.Now(), 0)))
	assert.Contains(t, out.String(), "QUEL EST VOTRE NOM ?")
}

func TestJSONHandler_InputUnquotes(t *testing.T) {
	h := NewJSONHandler(strings.NewReader("\"Léa\"\nplain\n"), io.Discard)

	got, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Léa", got)

	got, err = h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}
