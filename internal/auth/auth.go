// Package auth implements the auth collaborator in both modes: a local
// user collection with bcrypt credentials and minted session tokens, or a
// thin client for the remote auth API. The rest of the system only ever
// consumes the opaque user id/name and the bearer token.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"devsync/config"
	"devsync/pkg/logger"
	"devsync/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Service struct {
	mode        config.Mode
	db          *store.DB
	baseURL     string
	secret      []byte
	sessionPath string
	http        *http.Client
}

func New(cfg config.Config, db *store.DB) *Service {
	return &Service{
		mode:        cfg.Mode,
		db:          db,
		baseURL:     cfg.APIBaseURL,
		secret:      []byte(cfg.JWTSecret),
		sessionPath: filepath.Join(cfg.DataDir, "devsync_session.json"),
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// Register creates an account and opens a session.
func (s *Service) Register(ctx context.Context, email, password, name string) (User, error) {
	if s.mode == config.ModeRemote {
		return s.remoteAuth(ctx, "/api/auth/register", map[string]string{
			"email": email, "password": password, "name": name,
		})
	}

	if _, err := s.db.Users.FindOne(ctx, store.Query{"email": email}); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	record := store.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UnixMilli(),
	}
	if _, err := s.db.Users.InsertOne(ctx, record); err != nil {
		return User{}, err
	}

	user := User{ID: record.ID, Email: record.Email, Name: record.Name}
	return user, s.openSession(user)
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	if s.mode == config.ModeRemote {
		return s.remoteAuth(ctx, "/api/auth/login", map[string]string{
			"email": email, "password": password,
		})
	}

	record, err := s.db.Users.FindOne(ctx, store.Query{"email": email})
	if errors.Is(err, store.ErrNotFound) {
		return User{}, ErrInvalidCredentials
	} else if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}

	user := User{ID: record.ID, Email: record.Email, Name: record.Name}
	return user, s.openSession(user)
}

// CurrentUser returns the session's user, or nil when nobody is logged in.
func (s *Service) CurrentUser(ctx context.Context) (*User, error) {
	sess, ok := s.loadSession()
	if !ok {
		return nil, nil
	}
	if s.mode == config.ModeLocal {
		return &sess.User, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	res, err := s.http.Do(req)
	if err != nil {
		// The server may just be down; keep the token and report logged out.
		logger.Sugar.Warnf("session check failed: %v", err)
		return nil, nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		s.Logout()
		return nil, nil
	}
	var user User
	if err := json.NewDecoder(res.Body).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout drops the persisted session.
func (s *Service) Logout() {
	if err := os.Remove(s.sessionPath); err != nil && !os.IsNotExist(err) {
		logger.Sugar.Warnf("failed to clear session: %v", err)
	}
}

// Token returns the current bearer token, empty when logged out.
func (s *Service) Token() string {
	sess, ok := s.loadSession()
	if !ok {
		return ""
	}
	return sess.Token
}

func (s *Service) remoteAuth(ctx context.Context, path string, body map[string]string) (User, error) {
	raw, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("cannot connect to server at %s: ensure the backend is running or switch to local mode", s.baseURL)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var payload struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(res.Body).Decode(&payload) == nil && payload.Message != "" {
			return User{}, errors.New(payload.Message)
		}
		return User{}, errors.New("authentication failed")
	}

	var payload struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return User{}, err
	}
	return payload.User, s.writeSession(session{User: payload.User, Token: payload.Token})
}

// openSession mints a local HS256 token so Token() behaves the same in
// both modes, then persists the session.
func (s *Service) openSession(user User) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"iat":   time.Now().Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return err
	}
	return s.writeSession(session{User: user, Token: signed})
}

func (s *Service) writeSession(sess session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return os.WriteFile(s.sessionPath, raw, 0o600)
}

func (s *Service) loadSession() (session, bool) {
	raw, err := os.ReadFile(s.sessionPath)
	if err != nil {
		return session{}, false
	}
	var sess session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return session{}, false
	}
	return sess, true
}
