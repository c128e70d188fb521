package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2/google"

	"github.com/dtroode/authkeeper/internal/model"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleProfile struct {
	ID         string `json:"id"`
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	// v2 userinfo reports verified_email, the OIDC endpoint email_verified.
	VerifiedEmail *bool `json:"verified_email"`
	EmailVerified *bool `json:"email_verified"`
}

// NewGoogle creates the Google provider.
func NewGoogle(creds Credentials, opts ...Option) *Provider {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	userInfoURL := googleUserInfoURL
	if o.apiURL != "" {
		userInfoURL = o.apiURL + "/oauth2/v2/userinfo"
	}

	fetch := func(ctx context.Context, client *http.Client) (model.OAuthProfile, error) {
		var p googleProfile
		if err := getJSON(ctx, client, userInfoURL, &p); err != nil {
			return model.OAuthProfile{}, err
		}
		return p.normalize(), nil
	}

	return newProvider(model.ProviderGoogle, creds, []string{"openid", "email", "profile"}, google.Endpoint, o, fetch)
}

func (p googleProfile) normalize() model.OAuthProfile {
	id := p.ID
	if id == "" {
		id = p.Sub
	}

	first, last := splitName(p.Name)
	if p.GivenName != "" {
		first = p.GivenName
	}
	if p.FamilyName != "" {
		last = p.FamilyName
	}

	email := p.Email
	if isFalse(p.VerifiedEmail) || isFalse(p.EmailVerified) {
		email = ""
	}

	return model.OAuthProfile{
		ProviderUserID: id,
		Email:          email,
		FirstName:      first,
		LastName:       last,
		Avatar:         optional(p.Picture),
	}
}

func isFalse(b *bool) bool {
	return b != nil && !*b
}
