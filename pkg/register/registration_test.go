package register

import (
	"context"
	"testing"

	"registerbot/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistration(t *testing.T, st store.Store, opts Options) *Registration {
	t.Helper()
	reg, err := NewRegistration(context.Background(), "user-1", "Ola Nordmann", "ola@example.com", st, opts)
	require.NoError(t, err)
	return reg
}

func TestFullLinearFlowPersistsOnce(t *testing.T) {
	ms := store.NewMemStore()
	reg := newTestRegistration(t, ms, Options{})
	ctx := context.Background()

	reg.Start()
	require.True(t, reg.Active())

	question, err := reg.NextQuestion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "What are you studying?", question)

	answers := []string{"software engineering", "June 2024", "permanent"}
	for _, answer := range answers {
		rejection, ok := reg.Answer(answer)
		require.True(t, ok, "answer %q rejected: %s", answer, rejection)
	}
	require.Equal(t, StateFinished, reg.State())
	assert.Zero(t, ms.Upserts, "nothing may be persisted before the closing question")

	closing, err := reg.NextQuestion(ctx)
	require.NoError(t, err)
	assert.Contains(t, closing, "Thank you for registering.")

	assert.Equal(t, 1, ms.Upserts)
	persisted, ok := ms.Snapshot("user-1")
	require.True(t, ok)
	assert.Equal(t, "software engineering", persisted.Studying)
	assert.Equal(t, "June 2024", persisted.Done)
	assert.Equal(t, "permanent", persisted.Type)
	assert.Equal(t, "Ola Nordmann", persisted.Name)
	assert.Equal(t, "ola@example.com", persisted.Email)

	assert.True(t, reg.Done())
	assert.False(t, reg.Active())
}

func TestInvalidJobTypeLeavesStateUnchanged(t *testing.T) {
	ms := store.NewMemStore()
	reg := newTestRegistration(t, ms, Options{})

	reg.Start()
	_, ok := reg.Answer("physics")
	require.True(t, ok)
	_, ok = reg.Answer("2025")
	require.True(t, ok)
	require.Equal(t, StateJobType, reg.State())

	rejection, ok := reg.Answer("full-time")
	assert.False(t, ok)
	assert.Equal(t, "Answer 'full-time' not accepted", rejection)
	assert.Equal(t, StateJobType, reg.State())
	assert.Empty(t, reg.Record().Type)
}

func TestResumeFinishedRecordFromStore(t *testing.T) {
	ms := store.NewMemStore()
	require.NoError(t, ms.UpsertRegistered(context.Background(), &store.Registered{
		UniqueID: "user-1",
		Name:     "Ola Nordmann",
		Email:    "ola@example.com",
		Studying: "physics",
		Done:     "2025",
		Type:     "internship",
	}))
	ms.Upserts = 0

	reg := newTestRegistration(t, ms, Options{})
	assert.True(t, reg.Done())
	assert.False(t, reg.Active())
	assert.Equal(t, StateNothing, reg.State())

	rejection, ok := reg.Answer("hello")
	assert.False(t, ok, "the inert terminal state rejects everything")
	assert.Equal(t, "Answer 'hello' not accepted", rejection)
}

func TestModifyFlowChangesOnlySelectedField(t *testing.T) {
	ms := store.NewMemStore()
	require.NoError(t, ms.UpsertRegistered(context.Background(), &store.Registered{
		UniqueID: "user-1",
		Name:     "Ola Nordmann",
		Email:    "ola@example.com",
		Studying: "physics",
		Done:     "2025",
		Type:     "internship",
	}))
	ms.Upserts = 0

	reg := newTestRegistration(t, ms, Options{})
	require.True(t, reg.Done())
	ctx := context.Background()

	reg.StartModify()
	assert.True(t, reg.Active())
	assert.False(t, reg.Done())

	menu, err := reg.NextQuestion(ctx)
	require.NoError(t, err)
	assert.Contains(t, menu, "What do you want to modify?")

	_, ok := reg.Answer("2")
	require.True(t, ok)
	require.Equal(t, StateSetEmail, reg.State())

	_, ok = reg.Answer("new@example.com")
	require.True(t, ok)
	require.Equal(t, StateFinished, reg.State(), "editing one field exits directly to completion")

	_, err = reg.NextQuestion(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, ms.Upserts)
	persisted, found := ms.Snapshot("user-1")
	require.True(t, found)
	assert.Equal(t, "new@example.com", persisted.Email)
	assert.Equal(t, "Ola Nordmann", persisted.Name)
	assert.Equal(t, "physics", persisted.Studying)
	assert.Equal(t, "2025", persisted.Done)
	assert.Equal(t, "internship", persisted.Type)
}

func TestModifyMenuRejectsOutOfRangeChoice(t *testing.T) {
	ms := store.NewMemStore()
	require.NoError(t, ms.UpsertRegistered(context.Background(), &store.Registered{
		UniqueID: "user-1",
		Name:     "Ola Nordmann",
		Email:    "ola@example.com",
	}))

	reg := newTestRegistration(t, ms, Options{})
	reg.StartModify()

	rejection, ok := reg.Answer("7")
	assert.False(t, ok)
	assert.Equal(t, "Answer '7' not accepted", rejection)
	assert.Equal(t, StateModify, reg.State())
}

func TestAbortRestoresProfileAndResetsChain(t *testing.T) {
	ms := store.NewMemStore()
	reg := newTestRegistration(t, ms, Options{})
	ctx := context.Background()

	reg.Start()
	_, ok := reg.Answer("chemistry")
	require.True(t, ok)

	require.NoError(t, reg.Abort(ctx))

	assert.Equal(t, StateCurrentStudy, reg.State())
	assert.False(t, reg.Active())
	rec := reg.Record()
	assert.Equal(t, "Ola Nordmann", rec.Name)
	assert.Equal(t, "ola@example.com", rec.Email)
	assert.Empty(t, rec.Studying, "un-persisted edits are discarded")
}

func TestAbortDuringModifyResumesFinishedRecord(t *testing.T) {
	ms := store.NewMemStore()
	require.NoError(t, ms.UpsertRegistered(context.Background(), &store.Registered{
		UniqueID: "user-1",
		Name:     "Ola Nordmann",
		Email:    "ola@example.com",
		Studying: "physics",
		Done:     "2025",
		Type:     "internship",
	}))

	reg := newTestRegistration(t, ms, Options{})
	reg.StartModify()
	_, ok := reg.Answer("3")
	require.True(t, ok)
	_, ok = reg.Answer("biology")
	require.True(t, ok)

	require.NoError(t, reg.Abort(context.Background()))

	assert.True(t, reg.Done())
	assert.Equal(t, StateNothing, reg.State())
	assert.Equal(t, "physics", reg.Record().Studying, "edit was never persisted")
}

func TestAbortToModifyPolicyReturnsToMenu(t *testing.T) {
	ms := store.NewMemStore()
	require.NoError(t, ms.UpsertRegistered(context.Background(), &store.Registered{
		UniqueID: "user-1",
		Name:     "Ola Nordmann",
		Email:    "ola@example.com",
		Studying: "physics",
	}))

	reg := newTestRegistration(t, ms, Options{AbortToModify: true})
	reg.StartModify()
	_, ok := reg.Answer("1")
	require.True(t, ok)

	require.NoError(t, reg.Abort(context.Background()))

	assert.Equal(t, StateModify, reg.State())
	assert.True(t, reg.Active())
}

func TestDataSummary(t *testing.T) {
	ms := store.NewMemStore()
	reg := newTestRegistration(t, ms, Options{})
	reg.Start()
	reg.Answer("software engineering")
	reg.Answer("June 2024")
	reg.Answer("permanent")

	summary := reg.Data()
	assert.Contains(t, summary, "Name: Ola Nordmann")
	assert.Contains(t, summary, "Email: ola@example.com")
	assert.Contains(t, summary, "Studying: software engineering")
	assert.Contains(t, summary, "Finished studying: June 2024")
	assert.Contains(t, summary, "Type of work: permanent")
}
