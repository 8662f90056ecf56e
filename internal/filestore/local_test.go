package filestore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndOpen(t *testing.T) {
	store, err := New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	key := "org1/doc1/pat1/sessions/ses1/raw/note1_20250314_150926.jpg"
	locator, err := store.Save(context.Background(), key, []byte("payload"), "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "local://"+key, locator)

	reader, err := store.Open(context.Background(), locator)
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), content)
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := New("local", map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "../escape", []byte("x"), "")
	require.Error(t, err)
	_, err = store.Open(context.Background(), "local://../escape")
	require.Error(t, err)
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New("ftp", nil)
	require.Error(t, err)
}
