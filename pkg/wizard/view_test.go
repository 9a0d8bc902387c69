package wizard_test

import (
	"testing"
	"time"

	"github.com/nodus-reseau/leadform/pkg/domain"
	"github.com/nodus-reseau/leadform/pkg/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewView_Phases(t *testing.T) {
	now := time.Unix(100, 0)
	s := domain.NewState("s", "insta", now, 2500*time.Millisecond)

	v := wizard.NewView(s, now.Add(time.Second), 300*time.Millisecond)
	assert.Equal(t, domain.PhaseLoading, v.Phase)
	assert.Equal(t, int64(1500), v.ReadyInMs)
	assert.Equal(t, int64(300), v.AutoAdvanceMs)
	assert.Equal(t, "Source: insta", v.SourceLabel)
	assert.Nil(t, v.Step)

	s = domain.Activate(s)
	s, err := domain.AnswerCurrent(s, "Durand")
	require.NoError(t, err)
	v = wizard.NewView(s, now, 0)
	require.NotNil(t, v.Step)
	assert.Equal(t, domain.FieldNom, v.Step.ID)
	assert.Equal(t, "Durand", v.Step.Value)
	assert.True(t, v.Step.CanAdvance)
	assert.False(t, v.Step.CanRetreat)
	assert.Equal(t, "Étape 1 sur 5", v.Progress.Label)

	s, err = domain.JumpTo(s, 5)
	require.NoError(t, err)
	v = wizard.NewView(s, now, 0)
	assert.Nil(t, v.Step)
	assert.Len(t, v.Recap, 5)
	assert.True(t, v.CanSubmit)
	assert.Nil(t, v.Notice)

	s = domain.RecordSubmission(s, domain.Submission{Outcome: domain.OutcomeTransportFailure})
	v = wizard.NewView(s, now, 0)
	require.NotNil(t, v.Notice)
	assert.Equal(t, domain.FailureNotice, *v.Notice)
	assert.True(t, v.CanSubmit, "retry stays possible")
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "", wizard.SourceLabel("direct"))
	assert.Equal(t, "", wizard.SourceLabel(""))
	assert.Equal(t, "Source: flyer", wizard.SourceLabel("flyer"))
}
