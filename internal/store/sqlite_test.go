package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveVersion_GeneratesID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveVersion(ctx, Version{
		DocID:        "doc1",
		TeamID:       "team1",
		Content:      "snapshot text",
		CharCount:    13,
		MessageCount: 3,
		TriggerType:  "threshold",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	latest, err := s.LatestVersion(ctx, "doc1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, id, latest.ID)
	assert.Equal(t, "snapshot text", latest.Content)
	assert.Equal(t, "threshold", latest.TriggerType)
}

func TestListVersions_NewestFirstWithLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := s.SaveVersion(ctx, Version{
			DocID:       "doc1",
			TeamID:      "team1",
			Content:     string(rune('a' + i)),
			TriggerType: "forced",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	versions, err := s.ListVersions(ctx, "doc1", 2)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "c", versions[0].Content)
	assert.Equal(t, "b", versions[1].Content)
}

func TestLatestVersion_UnknownDocument(t *testing.T) {
	s := newTestStore(t)

	latest, err := s.LatestVersion(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestUpsertMetadata_InsertThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMetadata(ctx, Metadata{
		DocID: "doc1", TeamID: "team1", Title: "Release Notes",
	}))
	require.NoError(t, s.UpsertMetadata(ctx, Metadata{
		DocID: "doc1", TeamID: "team1", Title: "Release Notes v2", Description: "updated",
	}))

	m, err := s.GetMetadata(ctx, "doc1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Release Notes v2", m.Title)
	assert.Equal(t, "updated", m.Description)
}

func TestGetMetadata_UnknownDocument(t *testing.T) {
	s := newTestStore(t)

	m, err := s.GetMetadata(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSearchMetadata_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMetadata(ctx, Metadata{
		DocID: "doc1", TeamID: "t", Title: "Incident Postmortem",
	}))
	require.NoError(t, s.UpsertMetadata(ctx, Metadata{
		DocID: "doc2", TeamID: "t", Title: "Weekly Sync", Description: "standing POSTMORTEM review",
	}))
	require.NoError(t, s.UpsertMetadata(ctx, Metadata{
		DocID: "doc3", TeamID: "t", Title: "Unrelated",
	}))

	results, err := s.SearchMetadata(ctx, "postmortem")
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSearchMetadata_EscapesWildcards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMetadata(ctx, Metadata{
		DocID: "doc1", TeamID: "t", Title: "plain title",
	}))

	results, err := s.SearchMetadata(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReplaceMappings_ReplacesFolderSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceMappings(ctx, "folder1", []Mapping{
		{Name: "alpha", DocID: "d1"},
		{Name: "beta", DocID: "d2"},
	}))
	require.NoError(t, s.ReplaceMappings(ctx, "folder1", []Mapping{
		{Name: "beta", DocID: "d2-new"},
		{Name: "gamma", DocID: "d3"},
	}))

	all, err := s.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "beta", all[0].Name)
	assert.Equal(t, "d2-new", all[0].DocID)
	assert.Equal(t, "gamma", all[1].Name)

	m, err := s.GetMapping(ctx, "alpha")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestReplaceMappings_DoesNotTouchOtherFolders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceMappings(ctx, "folder1", []Mapping{{Name: "alpha", DocID: "d1"}}))
	require.NoError(t, s.ReplaceMappings(ctx, "folder2", []Mapping{{Name: "other", DocID: "d9"}}))
	require.NoError(t, s.ReplaceMappings(ctx, "folder1", nil))

	m, err := s.GetMapping(ctx, "other")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "d9", m.DocID)
}
