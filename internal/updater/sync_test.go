package updater

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/archivist/internal/drive"
	"git.home.luguber.info/inful/archivist/internal/store"
)

type fakeLister struct {
	files []drive.File
	err   error
}

func (f *fakeLister) ListFolder(context.Context, string) ([]drive.File, error) {
	return f.files, f.err
}

func TestSyncOnce_PopulatesMappingAndMetadata(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	lister := &fakeLister{files: []drive.File{
		{ID: "d1", Name: "Team Alpha Notes"},
		{ID: "d2", Name: "Team Beta Notes"},
	}}
	syncer := NewFolderSyncer(lister, st, "folder1")

	require.NoError(t, syncer.SyncOnce(context.Background()))

	m, err := st.GetMapping(context.Background(), "Team Alpha Notes")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "d1", m.DocID)
	assert.Equal(t, "folder1", m.FolderID)

	meta, err := st.GetMetadata(context.Background(), "d2")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Team Beta Notes", meta.Title)
}

func TestSyncOnce_RemovesVanishedDocuments(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	lister := &fakeLister{files: []drive.File{{ID: "d1", Name: "kept"}, {ID: "d2", Name: "dropped"}}}
	syncer := NewFolderSyncer(lister, st, "folder1")
	require.NoError(t, syncer.SyncOnce(context.Background()))

	lister.files = []drive.File{{ID: "d1", Name: "kept"}}
	require.NoError(t, syncer.SyncOnce(context.Background()))

	m, err := st.GetMapping(context.Background(), "dropped")
	require.NoError(t, err)
	assert.Nil(t, m)

	kept, err := st.GetMapping(context.Background(), "kept")
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func TestSyncOnce_ListFailurePropagates(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	syncer := NewFolderSyncer(&fakeLister{err: assert.AnError}, st, "folder1")
	require.Error(t, syncer.SyncOnce(context.Background()))
}
