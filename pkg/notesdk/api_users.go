package notesdk

import (
	"context"
	"net/http"
)

// Me fetches the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (User, error) {
	return getJSON[User](ctx, c, "/users/me", nil)
}

// GetUser fetches the public profile of a user.
func (c *Client) GetUser(ctx context.Context, id int64) (User, error) {
	return getJSON[User](ctx, c, "/users/"+pathID(id), nil)
}

// UpdateProfile edits the signed-in user's profile and refreshes the
// identity cached in the session.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (User, error) {
	var user User
	if err := c.Do(ctx, http.MethodPatch, "/users/me", nil, req, &user); err != nil {
		return User{}, err
	}
	if err := c.session.UpdateIdentity(ctx, user); err != nil {
		return user, err
	}
	return user, nil
}
