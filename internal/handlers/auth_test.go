package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jmoon/divtrack/internal/models"
	"github.com/jmoon/divtrack/internal/queue"
	"github.com/jmoon/divtrack/internal/services/account"
	"github.com/jmoon/divtrack/internal/services/oauth"
	"github.com/jmoon/divtrack/internal/services/token"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*models.User)}
}

func (m *memUserRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *memUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	m.users[user.Email] = &cp
	return nil
}

func (m *memUserRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u.EmailVerified = true
			return nil
		}
	}
	return fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

type noConfigRepo struct{}

func (noConfigRepo) GetByProvider(ctx context.Context, provider string) (*models.OAuthConfig, error) {
	return nil, fmt.Errorf("oauth config not found: %w", sql.ErrNoRows)
}
func (noConfigRepo) GetAll(ctx context.Context) ([]*models.OAuthConfig, error) { return nil, nil }
func (noConfigRepo) Set(ctx context.Context, cfg *models.OAuthConfig) error    { return nil }

func newAuthFixture(t *testing.T) (*memUserRepo, *fakeJobQueue, *token.Service, *mux.Router) {
	t.Helper()
	users := newMemUserRepo()
	jobs := &fakeJobQueue{}
	tokens, err := token.NewService("handlers-test-secret", "divtrack-test", time.Hour)
	if err != nil {
		t.Fatalf("token.NewService: %v", err)
	}

	handler := NewAuthHandler(
		account.NewService(users),
		tokens,
		oauth.NewService(noConfigRepo{}),
		jobs,
		zap.NewNop(),
	)

	r := mux.NewRouter()
	authRouter := r.PathPrefix("/api/v1/auth").Subrouter()
	handler.RegisterRoutes(authRouter)
	handler.RegisterProtectedRoutes(authRouter)
	return users, jobs, tokens, r
}

func TestRegister(t *testing.T) {
	t.Parallel()

	users, jobs, _, router := newAuthFixture(t)

	payload := `{"email":"Dana@Example.com","name":"Dana","password":"correct-horse-battery"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(payload))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, _ := body["data"].(map[string]any)
	if data["email"] != "dana@example.com" {
		t.Errorf("expected lowercased email in response, got %v", data["email"])
	}
	if _, leaked := data["passwordHash"]; leaked {
		t.Error("password hash leaked in response")
	}

	if _, err := users.GetByEmail(context.Background(), "dana@example.com"); err != nil {
		t.Errorf("user not stored: %v", err)
	}
	if len(jobs.jobsOfType(queue.JobTypeVerificationMail)) != 1 {
		t.Error("expected a verification mail job")
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	_, _, _, router := newAuthFixture(t)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "bad email", payload: `{"email":"not-an-email","name":"Dana","password":"long-enough-pw"}`},
		{name: "short password", payload: `{"email":"dana@example.com","name":"Dana","password":"short"}`},
		{name: "missing name", payload: `{"email":"dana@example.com","password":"long-enough-pw"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(tt.payload))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	_, _, _, router := newAuthFixture(t)

	payload := `{"email":"dana@example.com","name":"Dana","password":"correct-horse-battery"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(payload))
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(payload))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d, want 400", w.Code)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()

	_, _, tokens, router := newAuthFixture(t)

	register := `{"email":"dana@example.com","name":"Dana","password":"correct-horse-battery"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(register))
	router.ServeHTTP(httptest.NewRecorder(), req)

	login := `{"email":"dana@example.com","password":"correct-horse-battery"}`
	req = httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(login))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, _ := body["data"].(map[string]any)
	raw, _ := data["token"].(string)
	if raw == "" {
		t.Fatal("expected a token in login response")
	}

	if _, _, err := tokens.Verify(context.Background(), raw, token.PurposeAccess); err != nil {
		t.Errorf("login token failed verification: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	_, _, _, router := newAuthFixture(t)

	register := `{"email":"dana@example.com","name":"Dana","password":"correct-horse-battery"}`
	req := httptest.NewRequest("POST", "/api/v1/auth/register", strings.NewReader(register))
	router.ServeHTTP(httptest.NewRecorder(), req)

	login := `{"email":"dana@example.com","password":"wrong"}`
	req = httptest.NewRequest("POST", "/api/v1/auth/login", strings.NewReader(login))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestGetMe(t *testing.T) {
	t.Parallel()

	_, _, _, router := newAuthFixture(t)
	user := &models.User{ID: uuid.New(), Email: "dana@example.com", Name: "Dana"}

	req := withUser(httptest.NewRequest("GET", "/api/v1/auth/me", nil), user)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, _ := body["data"].(map[string]any)
	if data["email"] != "dana@example.com" {
		t.Errorf("unexpected me payload: %v", data)
	}
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	users, jobs, tokens, router := newAuthFixture(t)

	user := &models.User{ID: uuid.New(), Email: "dana@example.com", Name: "Dana"}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	raw, err := tokens.Issue(user, token.PurposeVerify)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/auth/verify?token="+raw, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	stored, err := users.GetByEmail(context.Background(), "dana@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if !stored.EmailVerified {
		t.Error("email not marked verified")
	}
	if len(jobs.jobsOfType(queue.JobTypeWelcomeMail)) != 1 {
		t.Error("expected a welcome mail job")
	}
}

func TestVerifyEmail_RejectsAccessToken(t *testing.T) {
	t.Parallel()

	users, _, tokens, router := newAuthFixture(t)

	user := &models.User{ID: uuid.New(), Email: "dana@example.com", Name: "Dana"}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	raw, err := tokens.Issue(user, token.PurposeAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/auth/verify?token="+raw, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestOAuthCallback_Errors(t *testing.T) {
	t.Parallel()

	_, _, _, router := newAuthFixture(t)

	t.Run("missing code", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/oauth/kakao/callback", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/oauth/myspace/callback?code=abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/oauth/kakao/callback?code=abc", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}
