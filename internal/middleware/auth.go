package middleware

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jmoon/divtrack/internal/database"
	"github.com/jmoon/divtrack/internal/logger"
	"github.com/jmoon/divtrack/internal/request"
	"github.com/jmoon/divtrack/internal/services/token"
)

// Auth creates authentication middleware that validates bearer tokens and
// loads the account into the request context.
func Auth(users database.UserRepositoryInterface, tokens *token.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, http.StatusUnauthorized, "missing Authorization header", log)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondAuthError(w, http.StatusUnauthorized, "invalid Authorization header format", log)
				return
			}

			ctx := r.Context()
			userID, _, err := tokens.Verify(ctx, parts[1], token.PurposeAccess)
			if err != nil {
				log.Debug("token_verification_failed",
					zap.String("error", logger.SanitizeError(err)),
				)
				respondAuthError(w, http.StatusUnauthorized, "invalid or expired token", log)
				return
			}

			user, err := users.GetByID(ctx, userID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					// Token subject no longer exists, e.g. a deleted account.
					respondAuthError(w, http.StatusUnauthorized, "unknown account", log)
					return
				}
				log.Error("auth_user_lookup_failed",
					zap.String("error", logger.SanitizeError(err)),
				)
				respondAuthError(w, http.StatusInternalServerError, "internal server error", log)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"ok":      false,
		"message": message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil && log != nil {
		log.Error("failed_to_encode_error_response", zap.Error(err))
	}
}
