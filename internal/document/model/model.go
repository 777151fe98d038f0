package model

// Patch is the partial update body for the remote document API. Only the
// fields present are applied server-side.
type Patch struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	IsPrivate *bool   `json:"isPrivate,omitempty"`
}

type CreateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}
