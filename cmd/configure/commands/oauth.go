package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmoon/divtrack/internal/config"
	"github.com/jmoon/divtrack/internal/database"
	"github.com/jmoon/divtrack/internal/models"
)

// providerDefaults carries well-known endpoint URLs so operators only
// need to supply client credentials for the supported providers.
type providerDefaults struct {
	authURL    string
	tokenURL   string
	profileURL string
	scopes     string
}

var knownProviders = map[string]providerDefaults{
	"kakao": {
		authURL:    "https://kauth.kakao.com/oauth/authorize",
		tokenURL:   "https://kauth.kakao.com/oauth/token",
		profileURL: "https://kapi.kakao.com/v2/user/me",
		scopes:     "account_email,profile_nickname",
	},
	"google": {
		authURL:    "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL:   "https://oauth2.googleapis.com/token",
		profileURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		scopes:     "openid,email,profile",
	},
}

// NewOAuthCmd creates the oauth configuration command with list and set subcommands.
func NewOAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oauth",
		Short: "Manage OAuth provider configuration",
		Long:  "List or update OAuth sign-in providers (stored in database).",
	}
	cmd.AddCommand(newOAuthListCmd())
	cmd.AddCommand(newOAuthSetCmd())
	return cmd
}

func newOAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured OAuth providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()
			repo := database.NewOAuthConfigRepository(db)
			configs, err := repo.GetAll(context.Background())
			if err != nil {
				return fmt.Errorf("list oauth configs: %w", err)
			}
			if len(configs) == 0 {
				fmt.Println("No OAuth providers configured. Use 'oauth set' to add one.")
				return nil
			}
			for _, c := range configs {
				fmt.Printf("Provider: %s\n", c.Provider)
				fmt.Printf("  Client ID: %s\n", c.ClientID)
				fmt.Printf("  Redirect URI: %s\n", c.RedirectURI)
				fmt.Printf("  Auth URL: %s\n", c.AuthURL)
				fmt.Printf("  Token URL: %s\n", c.TokenURL)
				fmt.Printf("  Profile URL: %s\n", c.ProfileURL)
				fmt.Printf("  Scopes: %s\n", c.Scopes)
			}
			return nil
		},
	}
}

func newOAuthSetCmd() *cobra.Command {
	var provider, clientID, clientSecret, redirectURI string
	var authURL, tokenURL, profileURL, scopes string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set an OAuth provider configuration",
		Long:  "Configure an OAuth sign-in provider. Endpoint URLs default to the provider's well-known values for kakao and google.",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = strings.ToLower(strings.TrimSpace(provider))
			if provider == "" {
				return fmt.Errorf("--provider is required (e.g. kakao, google)")
			}
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("--client-id and --client-secret are required")
			}
			if redirectURI == "" {
				return fmt.Errorf("--redirect-uri is required")
			}

			defaults, known := knownProviders[provider]
			if known {
				if authURL == "" {
					authURL = defaults.authURL
				}
				if tokenURL == "" {
					tokenURL = defaults.tokenURL
				}
				if profileURL == "" {
					profileURL = defaults.profileURL
				}
				if scopes == "" {
					scopes = defaults.scopes
				}
			}
			if authURL == "" || tokenURL == "" || profileURL == "" {
				return fmt.Errorf("--auth-url, --token-url and --profile-url are required for provider %q", provider)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()
			repo := database.NewOAuthConfigRepository(db)
			c := &models.OAuthConfig{
				Provider:     provider,
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURI:  redirectURI,
				AuthURL:      authURL,
				TokenURL:     tokenURL,
				ProfileURL:   profileURL,
				Scopes:       scopes,
			}
			if err := repo.Set(context.Background(), c); err != nil {
				return fmt.Errorf("set oauth config: %w", err)
			}
			fmt.Printf("OAuth provider %q configured.\n", provider)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider name (e.g. kakao, google) (required)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID (required)")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret (required)")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "Registered redirect URI (required)")
	cmd.Flags().StringVar(&authURL, "auth-url", "", "Authorization endpoint (defaults per provider)")
	cmd.Flags().StringVar(&tokenURL, "token-url", "", "Token endpoint (defaults per provider)")
	cmd.Flags().StringVar(&profileURL, "profile-url", "", "Profile endpoint (defaults per provider)")
	cmd.Flags().StringVar(&scopes, "scopes", "", "Comma-separated scopes (defaults per provider)")
	return cmd
}
