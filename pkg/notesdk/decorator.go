package notesdk

import "net/http"

// TokenSource yields the current access token, or "" when signed out.
type TokenSource interface {
	AccessToken() string
}

// Decorator attaches the current access token to outbound requests.
type Decorator struct {
	Tokens TokenSource
}

// Decorate returns a copy of r carrying "Authorization: Bearer <token>" and
// the token it attached. Without a token the copy is sent as is and token is
// "". r itself is never modified.
func (d Decorator) Decorate(r *http.Request) (out *http.Request, token string) {
	out = r.Clone(r.Context())

	if d.Tokens == nil {
		return out, ""
	}
	token = d.Tokens.AccessToken()
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out, token
}
