/*
Package notesdk provides a client SDK for the Moondance note-sharing API.

# Overview

Every call goes through one entry point, Client, whose http.Client carries
bearer credentials and renews them when the API answers 401. Callers never
handle token expiry themselves.

	client, err := notesdk.New(notesdk.Config{
		BaseURL: "https://moondance.example/api/v1",
		Backend: backend,
		OnLoginRequired: func(reason error) {
			// send the user back to the login prompt
		},
	})

	if err := client.Session().Hydrate(ctx); err != nil {
		// the persisted session could not be read; we start logged out
	}

	user, err := client.Session().Login(ctx, email, password)
	page, err := client.TrendingNotes(ctx, user.SchoolID, notesdk.PageRequest{Size: 10})

# Credential Renewal

When a request carrying an access token gets a 401, Transport asks the
RefreshCoordinator for a newer token and replays the request once. However
many requests fail at the same time, at most one refresh call is made; the
others wait for it and replay with its result. A request whose token was
already replaced is replayed without a refresh.

If the refresh fails, the session is cleared, every waiting request fails
with an *AuthError matching ErrSessionExpired, and Config.OnLoginRequired
runs. The coordinator then refuses to renew until a new login.

A replayed request that gets another 401 fails with ErrReplayRejected. It
is never renewed a second time.

# Sessions

Session owns the signed-in state. Login and Register install both the
token pair and the user's identity in one store write; Logout removes
both. Subscribe delivers every change:

	cancel := client.Session().Subscribe(func(s notesdk.SessionState) {
		if !s.Authenticated && s.Reason != nil {
			fmt.Println("session expired, please log in again")
		}
	})
	defer cancel()

# Error Handling

API failures are returned as *APIError and match the sentinel errors:

	_, err := client.GetNote(ctx, 42)
	if errors.Is(err, notesdk.ErrNotFound) {
		// ...
	}

Terminal authorization failures are *AuthError values and all match
ErrUnauthorized.
*/
package notesdk
