// Package oauth exchanges authorization codes from social providers for
// user profiles. Provider settings (client credentials and endpoints) live
// in the database so they can be rotated without a deploy.
package oauth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jmoon/divtrack/internal/database"
)

// Profile is the normalized identity returned by a provider.
type Profile struct {
	Provider string
	Email    string
	Name     string
}

// ErrUnknownProvider indicates a provider with no stored configuration or
// no profile parser.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// profileParser turns a provider's raw profile response into a Profile.
type profileParser func(body []byte) (*Profile, error)

var parsers = map[string]profileParser{
	"kakao":  parseKakaoProfile,
	"google": parseGoogleProfile,
}

const maxProfileResponseSize = 1 << 20 // 1MB

// Service performs the code-for-profile exchange.
type Service struct {
	configs    database.OAuthConfigRepositoryInterface
	httpClient *http.Client
}

// NewService creates an OAuth service backed by stored provider configs.
func NewService(configs database.OAuthConfigRepositoryInterface) *Service {
	return &Service{
		configs:    configs,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchProfile exchanges an authorization code with the named provider and
// returns the normalized profile.
func (s *Service) FetchProfile(ctx context.Context, provider, code string) (*Profile, error) {
	parse, ok := parsers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	cfg, err := s.configs.GetByProvider(ctx, provider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s is not configured", ErrUnknownProvider, provider)
		}
		return nil, fmt.Errorf("failed to load provider config: %w", err)
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
		Scopes: splitScopes(cfg.Scopes),
	}

	// Route the token exchange through our own HTTP client.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange with %s failed: %w", provider, err)
	}

	body, err := s.fetchRawProfile(ctx, conf, tok, cfg.ProfileURL)
	if err != nil {
		return nil, err
	}

	profile, err := parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s profile: %w", provider, err)
	}
	profile.Provider = provider
	return profile, nil
}

func (s *Service) fetchRawProfile(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token, profileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}
	return body, nil
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
