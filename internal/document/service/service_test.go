package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devsync/config"
	"devsync/internal/document/repository"
	"devsync/pkg/clock"
	"devsync/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db, err := store.Open(store.Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	return New(repository.New(config.ModeLocal, db, nil, clock.NewMock()))
}

func TestDeleteRequiresOwner(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	doc, err := svc.CreateDocument(ctx, "alice", "Mine")
	require.NoError(t, err)

	err = svc.DeleteDocument(ctx, doc.ID, "mallory")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.DeleteDocument(ctx, doc.ID, "alice"))
	docs, err := svc.Dashboard(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDeleteMissingDocument(t *testing.T) {
	svc := newService(t)
	err := svc.DeleteDocument(context.Background(), "missing", "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
