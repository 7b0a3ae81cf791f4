// Package youtube connects a user's YouTube channel and ingests its daily
// revenue as earnings.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"creatorfin/internal/core"
	"creatorfin/internal/ledger"
	"creatorfin/internal/log"
)

// Scopes requested from Google: channel lookup and revenue reports.
var Scopes = []string{
	"https://www.googleapis.com/auth/youtube.readonly",
	"https://www.googleapis.com/auth/yt-analytics.readonly",
}

// NewOAuthConfig builds the Google OAuth client configuration.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// Status describes a user's YouTube connection.
type Status struct {
	Connected   bool       `json:"connected"`
	ChannelID   *string    `json:"channelId"`
	DisplayName string     `json:"displayName,omitempty"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
}

// TokenManager owns the authorization-code exchange, the stored token pair
// and refreshes for the youtube platform.
type TokenManager struct {
	oauth      *oauth2.Config
	accounts   ledger.AccountStore
	api        API
	state      StateCodec
	httpClient *http.Client
	logger     *log.StructuredLogger
}

func NewTokenManager(cfg *oauth2.Config, accounts ledger.AccountStore, api API, state StateCodec, httpClient *http.Client, logger *log.StructuredLogger) *TokenManager {
	if state == nil {
		state = PlainState{}
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenManager{
		oauth:      cfg,
		accounts:   accounts,
		api:        api,
		state:      state,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (m *TokenManager) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// AuthURL returns the consent URL. Offline access with forced consent
// makes Google issue a refresh token on every connection.
func (m *TokenManager) AuthURL(userID string) (string, error) {
	if userID == "" {
		return "", core.ErrUnauthenticated
	}
	state, err := m.state.Encode(userID)
	if err != nil {
		return "", err
	}
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// HandleCallback completes the authorization-code flow and stores the
// connection. Every failure is a *CallbackError. The user id recovered from
// state is returned even on failure when it could be decoded.
func (m *TokenManager) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if code == "" || state == "" {
		return "", &CallbackError{Reason: ReasonMissingParams}
	}

	userID, err := m.state.Decode(state)
	if err != nil {
		return "", &CallbackError{Reason: ReasonInvalidState, Err: err}
	}

	tok, err := m.oauth.Exchange(m.oauthContext(ctx), code)
	if err != nil {
		return userID, &CallbackError{Reason: ReasonExchangeFailed, Err: err}
	}

	identity, err := m.api.ChannelIdentity(ctx, tok.AccessToken)
	if err != nil {
		return userID, &CallbackError{Reason: ReasonLookupFailed, Err: err}
	}
	if identity == nil {
		return userID, &CallbackError{Reason: ReasonNoChannel}
	}

	err = m.accounts.UpsertConnectedAccount(ctx, core.ConnectedAccount{
		UserID:       userID,
		Platform:     core.PlatformYouTube,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Identity:     identity,
	})
	if err != nil {
		return userID, &CallbackError{Reason: ReasonPersistFailed, Err: err}
	}

	if m.logger != nil {
		m.logger.LogAccountConnected(ctx, userID, core.PlatformYouTube, identity.PlatformAccountID)
	}
	return userID, nil
}

// Connect stores a token pair obtained outside the callback flow.
func (m *TokenManager) Connect(ctx context.Context, userID, accessToken, refreshToken string, identity *core.AccountIdentity) error {
	if userID == "" {
		return core.ErrUnauthenticated
	}
	if accessToken == "" {
		return &core.ValidationError{Field: "accessToken", Reason: "is required"}
	}
	if identity != nil && identity.PlatformAccountID == "" {
		identity = nil
	}

	err := m.accounts.UpsertConnectedAccount(ctx, core.ConnectedAccount{
		UserID:       userID,
		Platform:     core.PlatformYouTube,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Identity:     identity,
	})
	if err != nil {
		return err
	}

	if m.logger != nil {
		channelID := ""
		if identity != nil {
			channelID = identity.PlatformAccountID
		}
		m.logger.LogAccountConnected(ctx, userID, core.PlatformYouTube, channelID)
	}
	return nil
}

// Refresh exchanges the stored refresh token for a new access token and
// persists it in place. The stored refresh token is kept. A failed grant
// is returned as is.
func (m *TokenManager) Refresh(ctx context.Context, userID string) (string, error) {
	acct, err := m.accounts.GetConnectedAccount(ctx, userID, core.PlatformYouTube)
	if err != nil {
		return "", err
	}
	if acct.RefreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token stored", core.ErrUpstreamAuthExpired)
	}

	// An expired token forces the source to hit the refresh grant.
	src := m.oauth.TokenSource(m.oauthContext(ctx), &oauth2.Token{
		AccessToken:  acct.AccessToken,
		RefreshToken: acct.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		return "", classify("refresh token", err)
	}

	if err := m.accounts.UpdateAccessToken(ctx, userID, core.PlatformYouTube, tok.AccessToken); err != nil {
		return "", err
	}
	log.FromContext(ctx).DebugContext(ctx, "YouTube access token refreshed", log.FieldUserID, userID)
	return tok.AccessToken, nil
}

// Disconnect removes the stored connection.
func (m *TokenManager) Disconnect(ctx context.Context, userID string) error {
	if userID == "" {
		return core.ErrUnauthenticated
	}
	if _, err := m.accounts.GetConnectedAccount(ctx, userID, core.PlatformYouTube); err != nil {
		return err
	}
	return m.accounts.DeleteConnectedAccount(ctx, userID, core.PlatformYouTube)
}

// Status reports whether the user has a stored connection.
func (m *TokenManager) Status(ctx context.Context, userID string) (Status, error) {
	acct, err := m.accounts.GetConnectedAccount(ctx, userID, core.PlatformYouTube)
	if errors.Is(err, core.ErrNotConnected) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}

	st := Status{Connected: true}
	if !acct.ConnectedAt.IsZero() {
		st.ConnectedAt = &acct.ConnectedAt
	}
	if acct.Identity != nil {
		id := acct.Identity.PlatformAccountID
		st.ChannelID = &id
		st.DisplayName = acct.Identity.DisplayName
	}
	return st, nil
}
