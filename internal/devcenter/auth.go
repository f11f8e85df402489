package devcenter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrTokenExpired is returned when a request would be sent with an expired access token.
var ErrTokenExpired = errors.New("access token expired, run the command again")

// tokenExpiryLeeway is the margin under which a token is considered already expired.
const tokenExpiryLeeway = 30 * time.Second

// AccessToken is a bearer token for the API. It is not refreshed: once expired, a new run is needed.
type AccessToken struct {
	Value  string
	Expiry time.Time
}

// Valid reports whether the token can still be sent at now.
func (t AccessToken) Valid(now time.Time) bool {
	if t.Value == "" {
		return false
	}
	return t.Expiry.IsZero() || now.Add(tokenExpiryLeeway).Before(t.Expiry)
}

// Authenticate exchanges the client credentials for an access token.
func (c *Client) Authenticate(ctx context.Context) (AccessToken, error) {
	conf := clientcredentials.Config{
		ClientID:       c.creds.ClientID,
		ClientSecret:   c.creds.ClientSecret,
		TokenURL:       fmt.Sprintf("%s/%s/oauth2/token", c.authURL, url.PathEscape(c.creds.TenantID)),
		EndpointParams: url.Values{"resource": {c.resource}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}

	c.log.Debug("Requesting access token", "url", conf.TokenURL, "client", c.creds.ClientID)
	tok, err := conf.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to authenticate: %w", err)
	}

	return AccessToken{Value: tok.AccessToken, Expiry: tok.Expiry}, nil
}
