// Package api is the client side of the remote document API, used when the
// repository runs in remote mode. The server itself is an external
// collaborator; only its wire contract lives here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"devsync/internal/document/model"
	"devsync/store"
)

// TokenSource supplies the current bearer token; empty means unauthenticated.
type TokenSource func() string

type Client struct {
	baseURL string
	token   TokenSource
	http    *http.Client
}

func NewClient(baseURL string, token TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return c.http.Do(req)
}

func decode(res *http.Response, out any) error {
	defer res.Body.Close()
	return json.NewDecoder(res.Body).Decode(out)
}

// ListDocuments returns the caller's documents, already sorted by the
// server on updatedAt descending.
func (c *Client) ListDocuments(ctx context.Context) ([]store.Document, error) {
	res, err := c.do(ctx, http.MethodGet, "/api/documents", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, errors.New("failed to fetch documents")
	}
	var docs []store.Document
	if err := decode(res, &docs); err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}
	return docs, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (store.Document, error) {
	var doc store.Document
	res, err := c.do(ctx, http.MethodGet, "/api/documents/"+id, nil)
	if err != nil {
		return doc, fmt.Errorf("failed to fetch document: %w", err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return doc, store.ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return doc, errors.New("failed to fetch document")
	}
	if err := decode(res, &doc); err != nil {
		return doc, fmt.Errorf("failed to fetch document: %w", err)
	}
	return doc, nil
}

func (c *Client) CreateDocument(ctx context.Context, title, content string) (store.Document, error) {
	var doc store.Document
	res, err := c.do(ctx, http.MethodPost, "/api/documents", model.CreateRequest{Title: title, Content: content})
	if err != nil {
		return doc, fmt.Errorf("failed to create document: %w", err)
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		res.Body.Close()
		return doc, errors.New("failed to create document")
	}
	if err := decode(res, &doc); err != nil {
		return doc, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// SaveDocument applies a partial update. The server scopes the write to the
// caller's own documents and answers 404 otherwise.
func (c *Client) SaveDocument(ctx context.Context, id string, patch model.Patch) (store.Document, error) {
	var doc store.Document
	res, err := c.do(ctx, http.MethodPut, "/api/documents/"+id, patch)
	if err != nil {
		return doc, fmt.Errorf("failed to save document: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return doc, errors.New("failed to save document")
	}
	if err := decode(res, &doc); err != nil {
		return doc, fmt.Errorf("failed to save document: %w", err)
	}
	return doc, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	res, err := c.do(ctx, http.MethodDelete, "/api/documents/"+id, nil)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return errors.New("failed to delete document")
	}
	return nil
}
