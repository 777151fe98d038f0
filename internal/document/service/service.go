package service

import (
	"context"
	"errors"

	"devsync/internal/document/repository"
	"devsync/store"
)

var ErrUnauthorized = errors.New("unauthorized: only owner can delete")

// Service applies the business rules the presentation layer relies on and
// leaves storage routing to the repository.
type Service struct {
	Repo *repository.Repository
}

func New(repo *repository.Repository) *Service {
	return &Service{Repo: repo}
}

// Dashboard lists the user's documents, newest first.
func (s *Service) Dashboard(ctx context.Context, userID string) ([]store.Document, error) {
	return s.Repo.List(ctx, userID)
}

func (s *Service) CreateDocument(ctx context.Context, userID, title string) (store.Document, error) {
	return s.Repo.Create(ctx, userID, title)
}

// DeleteDocument removes a document the user owns. In remote mode the
// server enforces ownership; locally we check before deleting.
func (s *Service) DeleteDocument(ctx context.Context, docID, userID string) error {
	doc, err := s.Repo.Get(ctx, docID)
	if err != nil {
		return err
	}
	if doc.OwnerID != userID {
		return ErrUnauthorized
	}
	return s.Repo.Delete(ctx, docID)
}
