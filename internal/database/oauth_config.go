package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoon/divtrack/internal/models"
)

// OAuthConfigRepository handles OAuth provider configuration in the database.
type OAuthConfigRepository struct {
	db *DB
}

// NewOAuthConfigRepository creates a new OAuth config repository.
func NewOAuthConfigRepository(db *DB) *OAuthConfigRepository {
	return &OAuthConfigRepository{db: db}
}

// GetByProvider retrieves the OAuth configuration for a provider name.
func (r *OAuthConfigRepository) GetByProvider(ctx context.Context, provider string) (*models.OAuthConfig, error) {
	c := &models.OAuthConfig{}
	query := `
		SELECT provider, client_id, client_secret, redirect_uri, auth_url, token_url, profile_url, scopes, created_at, updated_at
		FROM oauth_config
		WHERE provider = $1
	`

	err := r.db.QueryRowContext(ctx, query, provider).Scan(
		&c.Provider,
		&c.ClientID,
		&c.ClientSecret,
		&c.RedirectURI,
		&c.AuthURL,
		&c.TokenURL,
		&c.ProfileURL,
		&c.Scopes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("oauth config not found for provider %s: %w", provider, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	return c, nil
}

// GetAll retrieves all OAuth provider configurations.
func (r *OAuthConfigRepository) GetAll(ctx context.Context) ([]*models.OAuthConfig, error) {
	query := `
		SELECT provider, client_id, client_secret, redirect_uri, auth_url, token_url, profile_url, scopes, created_at, updated_at
		FROM oauth_config
		ORDER BY provider
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query oauth configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.OAuthConfig
	for rows.Next() {
		c := &models.OAuthConfig{}
		err := rows.Scan(
			&c.Provider,
			&c.ClientID,
			&c.ClientSecret,
			&c.RedirectURI,
			&c.AuthURL,
			&c.TokenURL,
			&c.ProfileURL,
			&c.Scopes,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan oauth config: %w", err)
		}
		configs = append(configs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating oauth configs: %w", err)
	}

	return configs, nil
}

// Set upserts an OAuth provider configuration.
func (r *OAuthConfigRepository) Set(ctx context.Context, c *models.OAuthConfig) error {
	if c.Provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO oauth_config (provider, client_id, client_secret, redirect_uri, auth_url, token_url, profile_url, scopes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (provider) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			redirect_uri = EXCLUDED.redirect_uri,
			auth_url = EXCLUDED.auth_url,
			token_url = EXCLUDED.token_url,
			profile_url = EXCLUDED.profile_url,
			scopes = EXCLUDED.scopes,
			updated_at = EXCLUDED.updated_at
	`, c.Provider, c.ClientID, c.ClientSecret, c.RedirectURI, c.AuthURL, c.TokenURL, c.ProfileURL, c.Scopes, now, now)
	if err != nil {
		return fmt.Errorf("set oauth config: %w", err)
	}
	return nil
}
