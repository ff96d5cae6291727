package notesdk

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
)

// SDKClient performs the unauthenticated credential exchanges: login,
// registration and refresh. Its HTTP client must not run the response
// interceptor, or a failed refresh would try to refresh itself.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient returns a client for baseURL (including the /api/v1 prefix)
// with a 10 second timeout.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges email and password for tokens and the user's profile.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns tokens for it.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshGrant exchanges a refresh token for a new token pair.
func (c *SDKClient) RefreshGrant(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/refresh", nil, RefreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Renew implements Renewer on top of RefreshGrant.
func (c *SDKClient) Renew(ctx context.Context, refreshToken string) (credstore.Pair, error) {
	resp, err := c.RefreshGrant(ctx, refreshToken)
	if err != nil {
		return credstore.Pair{}, err
	}
	if resp.AccessToken == "" {
		return credstore.Pair{}, errors.New("notesdk: refresh response carries no access token")
	}
	return resp.Pair(), nil
}
