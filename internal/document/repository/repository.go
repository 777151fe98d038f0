package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"devsync/config"
	"devsync/internal/document/api"
	"devsync/internal/document/model"
	"devsync/pkg/clock"
	"devsync/store"
)

const (
	DefaultTitle = "Untitled Doc"

	// Initial content for freshly created documents.
	placeholderContent = "# New Document\n\nStart writing your technical documentation here..."
)

// Repository is the single entry point for document CRUD. The mode decided
// at construction routes every call to either the local store or the
// remote API; callers never branch on it themselves.
type Repository struct {
	mode   config.Mode
	db     *store.DB
	remote *api.Client
	clk    clock.Clock
}

func New(mode config.Mode, db *store.DB, remote *api.Client, clk clock.Clock) *Repository {
	if clk == nil {
		clk = clock.System()
	}
	return &Repository{mode: mode, db: db, remote: remote, clk: clk}
}

func (r *Repository) now() int64 { return r.clk.Now().UnixMilli() }

// List returns the owner's documents sorted by UpdatedAt descending.
func (r *Repository) List(ctx context.Context, ownerID string) ([]store.Document, error) {
	if r.mode == config.ModeRemote {
		return r.remote.ListDocuments(ctx)
	}

	docs, err := r.db.Documents.Find(ctx, store.Query{"ownerId": ownerID})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdatedAt > docs[j].UpdatedAt })
	return docs, nil
}

// Get returns the document or store.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id string) (store.Document, error) {
	if r.mode == config.ModeRemote {
		return r.remote.GetDocument(ctx, id)
	}
	return r.db.Documents.FindOne(ctx, store.Query{"id": id})
}

// Create makes a new document with the placeholder content template.
func (r *Repository) Create(ctx context.Context, ownerID, title string) (store.Document, error) {
	if title == "" {
		title = DefaultTitle
	}
	if r.mode == config.ModeRemote {
		return r.remote.CreateDocument(ctx, title, placeholderContent)
	}

	now := r.now()
	doc := store.Document{
		ID:        "doc_" + uuid.NewString(),
		Title:     title,
		Content:   placeholderContent,
		OwnerID:   ownerID,
		IsPrivate: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.Documents.InsertOne(ctx, doc)
}

// Save upserts by id. UpdatedAt is stamped with now; CreatedAt of an
// existing record survives the write.
func (r *Repository) Save(ctx context.Context, doc store.Document) (store.Document, error) {
	if r.mode == config.ModeRemote {
		return r.remote.SaveDocument(ctx, doc.ID, model.Patch{
			Title:     &doc.Title,
			Content:   &doc.Content,
			IsPrivate: &doc.IsPrivate,
		})
	}

	updated := doc
	updated.UpdatedAt = r.now()

	existing, err := r.db.Documents.FindOne(ctx, store.Query{"id": doc.ID})
	switch {
	case err == nil:
		updated.CreatedAt = existing.CreatedAt
		return r.db.Documents.UpdateOne(ctx, store.Query{"id": doc.ID}, func(store.Document) store.Document {
			return updated
		})
	case errors.Is(err, store.ErrNotFound):
		if updated.CreatedAt == 0 {
			updated.CreatedAt = updated.UpdatedAt
		}
		return r.db.Documents.InsertOne(ctx, updated)
	default:
		return store.Document{}, err
	}
}

// Delete removes the document. In remote mode the server scopes the delete
// to the caller's own documents.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.mode == config.ModeRemote {
		return r.remote.DeleteDocument(ctx, id)
	}
	_, err := r.db.Documents.DeleteOne(ctx, store.Query{"id": id})
	return err
}
