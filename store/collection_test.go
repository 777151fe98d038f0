package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(Options{DataDir: dir})
	require.NoError(t, err)
	return db, dir
}

func TestInsertAndFind(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.Documents.InsertOne(ctx, Document{ID: "d1", Title: "First", OwnerID: "alice"})
	require.NoError(t, err)
	_, err = db.Documents.InsertOne(ctx, Document{ID: "d2", Title: "Second", OwnerID: "bob"})
	require.NoError(t, err)

	docs, err := db.Documents.Find(ctx, Query{"ownerId": "alice"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)

	all, err := db.Documents.Find(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPartialMatchIsStrictEquality(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.Documents.InsertOne(ctx, Document{ID: "d1", Title: "Release Notes", OwnerID: "alice"})
	require.NoError(t, err)

	// Substrings never match.
	docs, err := db.Documents.Find(ctx, Query{"title": "Release"})
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Every present field must match.
	docs, err = db.Documents.Find(ctx, Query{"id": "d1", "ownerId": "bob"})
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Unknown fields never match.
	docs, err = db.Documents.Find(ctx, Query{"snippet": "x"})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFindOneNotFound(t *testing.T) {
	db, _ := newTestDB(t)

	_, err := db.Documents.FindOne(context.Background(), Query{"id": "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOneAppliesPatch(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.Documents.InsertOne(ctx, Document{ID: "d1", Title: "Old", Content: "body", OwnerID: "alice"})
	require.NoError(t, err)

	updated, err := db.Documents.UpdateOne(ctx, Query{"id": "d1"}, func(d Document) Document {
		d.Title = "New"
		return d
	})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "body", updated.Content, "untouched fields survive the patch")

	reloaded, err := db.Documents.FindOne(ctx, Query{"id": "d1"})
	require.NoError(t, err)
	assert.Equal(t, "New", reloaded.Title)

	_, err = db.Documents.UpdateOne(ctx, Query{"id": "missing"}, func(d Document) Document { return d })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOne(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.Documents.InsertOne(ctx, Document{ID: "d1", OwnerID: "alice"})
	require.NoError(t, err)

	removed, err := db.Documents.DeleteOne(ctx, Query{"id": "d1"})
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = db.Documents.DeleteOne(ctx, Query{"id": "d1"})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCorruptStateDegradesToEmpty(t *testing.T) {
	db, dir := newTestDB(t)
	ctx := context.Background()

	path := filepath.Join(dir, "devsync_db_documents.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	docs, err := db.Documents.Find(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, docs)

	// Writes still work after the recovery.
	_, err = db.Documents.InsertOne(ctx, Document{ID: "d1"})
	require.NoError(t, err)
	docs, err = db.Documents.Find(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentsChangedNotification(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	var fired int
	unsubscribe := db.OnDocumentsChanged(func() { fired++ })

	_, err := db.Documents.InsertOne(ctx, Document{ID: "d1", OwnerID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 0, fired, "inserts do not notify")

	_, err = db.Documents.UpdateOne(ctx, Query{"id": "d1"}, func(d Document) Document {
		d.Title = "T"
		return d
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	_, err = db.Documents.DeleteOne(ctx, Query{"id": "d1"})
	require.NoError(t, err)
	assert.Equal(t, 2, fired)

	unsubscribe()
	_, err = db.Documents.InsertOne(ctx, Document{ID: "d2"})
	require.NoError(t, err)
	_, err = db.Documents.DeleteOne(ctx, Query{"id": "d2"})
	require.NoError(t, err)
	assert.Equal(t, 2, fired, "unsubscribed listeners stay quiet")
}

func TestUserMatch(t *testing.T) {
	u := User{ID: "u1", Email: "a@b.c", Name: "Alice"}
	assert.True(t, u.Match(Query{"email": "a@b.c"}))
	assert.False(t, u.Match(Query{"email": "x@b.c"}))
	assert.False(t, u.Match(Query{"passwordHash": "anything"}))
}
