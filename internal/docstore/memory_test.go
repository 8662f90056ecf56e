package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evonota/evonota/internal/model"
	errs "github.com/evonota/evonota/internal/pkg/errors"
)

func TestMemoryStore_NoteRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	note := testNote("note1")
	require.NoError(t, store.PutNote(ctx, note))

	// The stored copy must not alias the caller's emotion slices.
	note.Emotions["estres"].Entities[0] = "mutated"

	got, err := store.GetNote(ctx, testStoreScope(), "note1")
	require.NoError(t, err)
	require.Equal(t, []string{"trabajo"}, got.Emotions["estres"].Entities)

	_, err = store.GetNote(ctx, testStoreScope(), "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMemoryStore_ListSessionNotesOrdered(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	second := testNote("note2")
	second.CreatedAt = 200
	first := testNote("note1")
	first.CreatedAt = 100
	require.NoError(t, store.PutNote(ctx, second))
	require.NoError(t, store.PutNote(ctx, first))

	notes, err := store.ListSessionNotes(ctx, testStoreScope())
	require.NoError(t, err)
	require.Len(t, notes, 2)
	require.Equal(t, "note1", notes[0].NoteID)
}

func TestMemoryStore_DoctorEmailUnique(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	require.NoError(t, store.CreateDoctor(ctx, &model.Doctor{UID: "doc1", OrgID: "org1", Email: "a@b.c"}))
	err := store.CreateDoctor(ctx, &model.Doctor{UID: "doc2", OrgID: "org1", Email: "a@b.c"})
	require.ErrorIs(t, err, errs.ErrConflict)
}
