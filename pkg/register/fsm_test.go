package register

import (
	"context"
	"testing"

	"registerbot/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptNonEmptyForAllReachableStates(t *testing.T) {
	states := []string{
		StateCurrentStudy,
		StateDoneStudying,
		StateJobType,
		StateSetName,
		StateSetEmail,
		StateModify,
		StateFinished,
	}
	for _, state := range states {
		assert.NotEmpty(t, prompt(state), "state %s should have a prompt", state)
	}
	assert.Empty(t, prompt(StateNothing))
}

func TestApplyAnswerWritesFields(t *testing.T) {
	rec := store.Registered{}

	require.True(t, applyAnswer(StateCurrentStudy, &rec, " software engineering "))
	assert.Equal(t, "software engineering", rec.Studying)

	require.True(t, applyAnswer(StateDoneStudying, &rec, "June 2024"))
	assert.Equal(t, "June 2024", rec.Done)

	require.True(t, applyAnswer(StateSetName, &rec, "Kari Nordmann"))
	assert.Equal(t, "Kari Nordmann", rec.Name)

	require.True(t, applyAnswer(StateSetEmail, &rec, "kari@example.com"))
	assert.Equal(t, "kari@example.com", rec.Email)
}

func TestApplyAnswerJobTypeValidation(t *testing.T) {
	rec := store.Registered{}

	assert.False(t, applyAnswer(StateJobType, &rec, "freelance"))
	assert.Empty(t, rec.Type, "rejected input must not write the field")

	require.True(t, applyAnswer(StateJobType, &rec, "  Permanent "))
	assert.Equal(t, "permanent", rec.Type)

	require.True(t, applyAnswer(StateJobType, &rec, "INTERNSHIP"))
	assert.Equal(t, "internship", rec.Type)
}

func TestApplyAnswerRejectsEmptyInput(t *testing.T) {
	rec := store.Registered{}
	assert.False(t, applyAnswer(StateCurrentStudy, &rec, "   "))
	assert.Empty(t, rec.Studying)
}

func TestModifyChoice(t *testing.T) {
	cases := map[string]string{
		"1":   EventSelectName,
		"2":   EventSelectEmail,
		"3":   EventSelectStudy,
		"4":   EventSelectDone,
		" 5 ": EventSelectType,
	}
	for input, want := range cases {
		event, ok := modifyChoice(input)
		require.True(t, ok, "input %q", input)
		assert.Equal(t, want, event)
	}

	for _, input := range []string{"0", "6", "two", "", "1.5"} {
		_, ok := modifyChoice(input)
		assert.False(t, ok, "input %q should be rejected", input)
	}
}

func TestDialogueFSMLinearChain(t *testing.T) {
	machine := newDialogueFSM(StateCurrentStudy)

	for _, want := range []string{StateDoneStudying, StateJobType, StateFinished} {
		require.NoError(t, machine.Event(context.Background(), EventAdvance))
		assert.Equal(t, want, machine.Current())
	}

	require.NoError(t, machine.Event(context.Background(), EventComplete))
	assert.Equal(t, StateNothing, machine.Current())
}

func TestDialogueFSMModifyJumpsToFinished(t *testing.T) {
	machine := newDialogueFSM(StateModify)

	require.NoError(t, machine.Event(context.Background(), EventSelectEmail))
	assert.Equal(t, StateSetEmail, machine.Current())

	require.NoError(t, machine.Event(context.Background(), EventFinishEdit))
	assert.Equal(t, StateFinished, machine.Current())
}
