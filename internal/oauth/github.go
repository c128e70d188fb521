package oauth

import (
	"context"
	"net/http"
	"strconv"

	"golang.org/x/oauth2/github"

	"github.com/dtroode/authkeeper/internal/model"
)

const githubAPIURL = "https://api.github.com"

type githubProfile struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL string  `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// NewGitHub creates the GitHub provider. Users with a private email are resolved through /user/emails.
func NewGitHub(creds Credentials, opts ...Option) *Provider {
	o := options{apiURL: githubAPIURL}
	for _, opt := range opts {
		opt(&o)
	}
	apiURL := o.apiURL

	fetch := func(ctx context.Context, client *http.Client) (model.OAuthProfile, error) {
		var p githubProfile
		if err := getJSON(ctx, client, apiURL+"/user", &p); err != nil {
			return model.OAuthProfile{}, err
		}

		profile := p.normalize()
		if profile.Email != "" {
			return profile, nil
		}

		var emails []githubEmail
		if err := getJSON(ctx, client, apiURL+"/user/emails", &emails); err != nil {
			return model.OAuthProfile{}, err
		}
		profile.Email = primaryEmail(emails)

		return profile, nil
	}

	return newProvider(model.ProviderGitHub, creds, []string{"read:user", "user:email"}, github.Endpoint, o, fetch)
}

func (p githubProfile) normalize() model.OAuthProfile {
	var name, email string
	if p.Name != nil {
		name = *p.Name
	}
	if p.Email != nil {
		email = *p.Email
	}
	first, last := splitName(name)

	return model.OAuthProfile{
		ProviderUserID: strconv.FormatInt(p.ID, 10),
		Email:          email,
		FirstName:      first,
		LastName:       last,
		Avatar:         optional(p.AvatarURL),
	}
}

// primaryEmail prefers the primary verified address, then any verified one.
func primaryEmail(emails []githubEmail) string {
	var fallback string
	for _, e := range emails {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email
		}
		if fallback == "" {
			fallback = e.Email
		}
	}
	return fallback
}
