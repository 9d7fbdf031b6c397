package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Profile is the identity returned by the OAuth provider after a successful
// code exchange.
type Profile struct {
	Subject string // stable provider user id (sub claim)
	Email   string
	Name    string
}

// IdentityProvider abstracts the external OAuth identity provider so the
// auth service and handlers can be tested against a fake.
type IdentityProvider interface {
	// LoginURL builds the provider authorization URL carrying state.
	LoginURL(state string) string
	// Exchange trades an authorization code for the user's profile.
	Exchange(ctx context.Context, code string) (*Profile, error)
	// LogoutURL builds the provider logout URL returning to returnTo.
	LogoutURL(returnTo string) string
}

// Auth0Config configures the Auth0-shaped provider. Endpoint URLs are
// derived from IssuerBaseURL and may be overridden for tests.
type Auth0Config struct {
	IssuerBaseURL string
	ClientID      string
	ClientSecret  string
	RedirectURL   string

	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	LogoutURL    string
}

// Auth0Provider implements IdentityProvider against an Auth0-compatible
// issuer (authorize / oauth/token / userinfo endpoints).
type Auth0Provider struct {
	cfg    Auth0Config
	client *http.Client
}

// NewAuth0Provider constructs an Auth0Provider, deriving endpoint URLs from
// the issuer when not explicitly set.
func NewAuth0Provider(cfg Auth0Config) *Auth0Provider {
	base := strings.TrimRight(cfg.IssuerBaseURL, "/")
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = base + "/authorize"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = base + "/oauth/token"
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = base + "/userinfo"
	}
	if cfg.LogoutURL == "" {
		cfg.LogoutURL = base + "/v2/logout"
	}
	return &Auth0Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// LoginURL builds the authorization URL with openid/email/profile scopes.
func (p *Auth0Provider) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.cfg.ClientID},
		"redirect_uri":  {p.cfg.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	}
	return p.cfg.AuthorizeURL + "?" + params.Encode()
}

// LogoutURL builds the provider logout URL returning the browser to returnTo.
func (p *Auth0Provider) LogoutURL(returnTo string) string {
	params := url.Values{
		"client_id": {p.cfg.ClientID},
		"returnTo":  {returnTo},
	}
	return p.cfg.LogoutURL + "?" + params.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type userInfoResponse struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades the authorization code for an access token and fetches the
// user profile from the userinfo endpoint.
func (p *Auth0Provider) Exchange(ctx context.Context, code string) (*Profile, error) {
	tok, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange token: %w", err)
	}

	info, err := p.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}

	return &Profile{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
	}, nil
}

func (p *Auth0Provider) exchangeToken(ctx context.Context, code string) (*tokenResponse, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {p.cfg.ClientID},
		"client_secret": {p.cfg.ClientSecret},
		"redirect_uri":  {p.cfg.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return &tok, nil
}

func (p *Auth0Provider) fetchUserInfo(ctx context.Context, accessToken string) (*userInfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("userinfo missing sub claim")
	}
	return &info, nil
}
