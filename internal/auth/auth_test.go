package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devsync/config"
	"devsync/store"
)

func newLocalService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(store.Options{DataDir: dir, Latency: 0})
	require.NoError(t, err)
	return New(config.Config{
		Mode:      config.ModeLocal,
		DataDir:   dir,
		JWTSecret: "test_secret",
	}, db)
}

func newRemoteService(t *testing.T, baseURL string) *Service {
	t.Helper()
	return New(config.Config{
		Mode:       config.ModeRemote,
		DataDir:    t.TempDir(),
		APIBaseURL: baseURL,
		JWTSecret:  "test_secret",
	}, nil)
}

func TestLocalRegisterAndLogin(t *testing.T) {
	svc := newLocalService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "ada@example.com", "hunter2", "Ada")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)

	again, err := svc.Login(ctx, "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
}

func TestLocalRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newLocalService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "hunter2", "Ada")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ada@example.com", "other", "Imposter")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLocalLoginRejectsBadCredentials(t *testing.T) {
	svc := newLocalService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "hunter2", "Ada")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalSessionLifecycle(t *testing.T) {
	svc := newLocalService(t)
	ctx := context.Background()

	current, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Empty(t, svc.Token())

	user, err := svc.Register(ctx, "ada@example.com", "hunter2", "Ada")
	require.NoError(t, err)

	current, err = svc.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)

	svc.Logout()
	current, err = svc.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Empty(t, svc.Token())
}

func TestLocalTokenCarriesIdentity(t *testing.T) {
	svc := newLocalService(t)

	user, err := svc.Register(context.Background(), "ada@example.com", "hunter2", "Ada")
	require.NoError(t, err)

	raw := svc.Token()
	require.NotEmpty(t, raw)

	parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return []byte("test_secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, user.ID, claims["sub"])
	assert.Equal(t, "ada@example.com", claims["email"])
}

func TestRemoteLoginStoresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])

		json.NewEncoder(w).Encode(map[string]any{
			"user":  User{ID: "u1", Email: "ada@example.com", Name: "Ada"},
			"token": "server-token",
		})
	}))
	defer srv.Close()

	svc := newRemoteService(t, srv.URL)
	user, err := svc.Login(context.Background(), "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "server-token", svc.Token())
}

func TestRemoteLoginSurfacesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid email or password"})
	}))
	defer srv.Close()

	svc := newRemoteService(t, srv.URL)
	_, err := svc.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.EqualError(t, err, "Invalid email or password")
}

func TestRemoteLoginConnectionRefused(t *testing.T) {
	svc := newRemoteService(t, "http://127.0.0.1:1")
	_, err := svc.Login(context.Background(), "ada@example.com", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "switch to local mode")
}

func TestRemoteCurrentUserValidatesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			json.NewEncoder(w).Encode(map[string]any{
				"user":  User{ID: "u1", Email: "ada@example.com", Name: "Ada"},
				"token": "server-token",
			})
		case "/api/auth/me":
			require.Equal(t, "Bearer server-token", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(User{ID: "u1", Email: "ada@example.com", Name: "Ada"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	svc := newRemoteService(t, srv.URL)
	_, err := svc.Login(context.Background(), "ada@example.com", "hunter2")
	require.NoError(t, err)

	current, err := svc.CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "u1", current.ID)
}

func TestRemoteCurrentUserClearsRejectedSession(t *testing.T) {
	var rejected bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			json.NewEncoder(w).Encode(map[string]any{
				"user":  User{ID: "u1", Email: "ada@example.com", Name: "Ada"},
				"token": "expired-token",
			})
		case "/api/auth/me":
			rejected = true
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	svc := newRemoteService(t, srv.URL)
	_, err := svc.Login(context.Background(), "ada@example.com", "hunter2")
	require.NoError(t, err)

	current, err := svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.True(t, rejected)
	assert.Empty(t, svc.Token())
}

func TestRemoteCurrentUserKeepsTokenWhenServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"user":  User{ID: "u1", Email: "ada@example.com", Name: "Ada"},
			"token": "server-token",
		})
	}))

	svc := newRemoteService(t, srv.URL)
	_, err := svc.Login(context.Background(), "ada@example.com", "hunter2")
	require.NoError(t, err)
	srv.Close()

	current, err := svc.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Equal(t, "server-token", svc.Token())
}
