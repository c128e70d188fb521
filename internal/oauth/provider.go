// Package oauth implements the social login providers on top of golang.org/x/oauth2.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dtroode/authkeeper/internal/model"
)

type profileFetcher func(ctx context.Context, client *http.Client) (model.OAuthProfile, error)

var _ model.OAuthProvider = (*Provider)(nil)

// Provider runs the authorization code flow and normalizes the provider profile.
type Provider struct {
	name    model.Provider
	config  *oauth2.Config
	profile profileFetcher
}

// Credentials identify an OAuth2 client.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type options struct {
	endpoint *oauth2.Endpoint
	apiURL   string
}

// Option customizes a provider.
type Option func(*options)

// WithEndpoint replaces the provider authorization and token endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(o *options) {
		o.endpoint = &endpoint
	}
}

// WithAPIURL replaces the base URL profile requests are sent to.
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiURL = strings.TrimRight(url, "/")
	}
}

func newProvider(name model.Provider, creds Credentials, scopes []string, endpoint oauth2.Endpoint, o options, fetch profileFetcher) *Provider {
	if o.endpoint != nil {
		endpoint = *o.endpoint
	}
	return &Provider{
		name: name,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		profile: fetch,
	}
}

func (p *Provider) Name() model.Provider {
	return p.name
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades code for a provider token and fetches the user's profile with it.
func (p *Provider) Exchange(ctx context.Context, code string) (model.OAuthProfile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return model.OAuthProfile{}, fmt.Errorf("failed to exchange %s code: %w", p.name, err)
	}

	profile, err := p.profile(ctx, p.config.Client(ctx, token))
	if err != nil {
		return model.OAuthProfile{}, fmt.Errorf("failed to fetch %s profile: %w", p.name, err)
	}

	return profile, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// splitName splits a display name into first and last names.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "User", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
