package notesdk

import (
	"context"
	"net/http"
	"net/url"
)

// ChangePassword changes the signed-in user's password.
//
// The server answers a wrong current password with 401, which the
// interceptor cannot tell apart from an expired access token. Such a call
// costs one renewal and fails with ErrReplayRejected.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.Do(ctx, http.MethodPost, "/auth/change-password", nil, ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	}, nil)
}

// VerifyEmail confirms an email address with the token from the
// verification mail.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.Do(ctx, http.MethodGet, "/auth/verify-email", url.Values{"token": {token}}, nil, nil)
}
