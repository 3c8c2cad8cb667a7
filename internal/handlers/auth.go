package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jmoon/divtrack/internal/logger"
	"github.com/jmoon/divtrack/internal/queue"
	"github.com/jmoon/divtrack/internal/request"
	"github.com/jmoon/divtrack/internal/services/account"
	"github.com/jmoon/divtrack/internal/services/oauth"
	"github.com/jmoon/divtrack/internal/services/token"
	"github.com/jmoon/divtrack/internal/validation"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	accounts *account.Service
	tokens   *token.Service
	oauth    *oauth.Service
	jobs     queue.JobQueue
	log      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts *account.Service, tokens *token.Service, oauthSvc *oauth.Service, jobs queue.JobQueue, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
		oauth:    oauthSvc,
		jobs:     jobs,
		log:      log,
	}
}

// RegisterRoutes registers the public auth routes on the given router.
// The router should already have the /api/v1/auth prefix. GET /me is
// registered separately behind the auth middleware.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/verify", h.VerifyEmail).Methods("GET")
	r.HandleFunc("/oauth/{provider}/callback", h.OAuthCallback).Methods("GET")
}

// RegisterProtectedRoutes registers auth routes that require a valid token
func (h *AuthHandler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest represents a password login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by login and the OAuth callback
type TokenResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// Register creates a local account and queues a verification email
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Email, validation.SanitizeText(req.Name), req.Password)
	if err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			respondJSONError(w, http.StatusBadRequest, "email already registered")
			return
		}
		h.log.Error("register_failed",
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	h.enqueueVerificationMail(r, user.ID, user.Email)
	respondJSON(w, http.StatusCreated, user)
}

// Login authenticates email and password and returns a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			respondJSONError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.log.Error("login_failed",
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	raw, err := h.tokens.Issue(user, token.PurposeAccess)
	if err != nil {
		h.log.Error("token_issue_failed",
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: raw, User: user})
}

// GetMe returns the authenticated account
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// VerifyEmail consumes a verification token from an email link
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		respondJSONError(w, http.StatusBadRequest, "token query parameter is required")
		return
	}

	userID, email, err := h.tokens.Verify(r.Context(), raw, token.PurposeVerify)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid or expired verification token")
		return
	}

	if err := h.accounts.VerifyEmail(r.Context(), userID); err != nil {
		h.log.Error("email_verification_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", userID.String()),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to verify email")
		return
	}

	h.enqueueWelcomeMail(r, userID, email)
	respondJSON(w, http.StatusOK, nil)
}

// OAuthCallback finishes a social login: it exchanges the authorization
// code, resolves the account by email and returns a bearer token.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]
	code := r.URL.Query().Get("code")
	if code == "" {
		respondJSONError(w, http.StatusBadRequest, "code query parameter is required")
		return
	}

	profile, err := h.oauth.FetchProfile(r.Context(), provider, code)
	if err != nil {
		if errors.Is(err, oauth.ErrUnknownProvider) {
			respondJSONError(w, http.StatusNotFound, "unknown oauth provider")
			return
		}
		h.log.Warn("oauth_exchange_failed",
			zap.String("provider", provider),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusUnauthorized, "oauth sign-in failed")
		return
	}

	user, err := h.accounts.FindOrCreateByEmail(r.Context(), profile)
	if err != nil {
		h.log.Error("oauth_account_resolution_failed",
			zap.String("provider", provider),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to resolve account")
		return
	}

	raw, err := h.tokens.Issue(user, token.PurposeAccess)
	if err != nil {
		h.log.Error("token_issue_failed",
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: raw, User: user})
}

func (h *AuthHandler) enqueueVerificationMail(r *http.Request, userID uuid.UUID, email string) {
	if h.jobs == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeVerificationMail, userID)
	job.Metadata["email"] = email
	expiry := time.Now().Add(24 * time.Hour)
	job.NotAfter = &expiry
	if err := h.jobs.Enqueue(r.Context(), job); err != nil {
		h.log.Warn("verification_mail_enqueue_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", userID.String()),
		)
	}
}

func (h *AuthHandler) enqueueWelcomeMail(r *http.Request, userID uuid.UUID, email string) {
	if h.jobs == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeWelcomeMail, userID)
	job.Metadata["email"] = email
	if err := h.jobs.Enqueue(r.Context(), job); err != nil {
		h.log.Warn("welcome_mail_enqueue_failed",
			zap.String("error", logger.SanitizeError(err)),
			zap.String("user_id", userID.String()),
		)
	}
}
