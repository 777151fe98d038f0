package store

// Query is a partial-match predicate: a record matches when every listed
// field is strictly equal. Unknown field names never match.
type Query map[string]any

// Record is anything a Collection can hold.
type Record interface {
	RecordID() string
	Match(q Query) bool
}

// Document is the persisted document schema. Timestamps are unix
// milliseconds to stay wire-compatible with the remote API.
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	OwnerID   string `json:"ownerId"`
	IsPrivate bool   `json:"isPrivate"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

func (d Document) RecordID() string { return d.ID }

func (d Document) Match(q Query) bool {
	for field, want := range q {
		switch field {
		case "id":
			if s, ok := want.(string); !ok || s != d.ID {
				return false
			}
		case "title":
			if s, ok := want.(string); !ok || s != d.Title {
				return false
			}
		case "ownerId":
			if s, ok := want.(string); !ok || s != d.OwnerID {
				return false
			}
		case "isPrivate":
			if b, ok := want.(bool); !ok || b != d.IsPrivate {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// User is the persisted user schema for local mode. PasswordHash is a
// bcrypt hash, never the raw credential.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    int64  `json:"createdAt"`
}

func (u User) RecordID() string { return u.ID }

func (u User) Match(q Query) bool {
	for field, want := range q {
		switch field {
		case "id":
			if s, ok := want.(string); !ok || s != u.ID {
				return false
			}
		case "email":
			if s, ok := want.(string); !ok || s != u.Email {
				return false
			}
		case "name":
			if s, ok := want.(string); !ok || s != u.Name {
				return false
			}
		default:
			return false
		}
	}
	return true
}
