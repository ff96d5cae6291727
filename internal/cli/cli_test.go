package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAPI serves just enough of the API for the CLI. Tokens are opaque
// counters; expire rotates the valid one.
type fakeAPI struct {
	srv *httptest.Server

	mu          sync.Mutex
	gen         int
	access      string
	refresh     string
	refreshFail bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "ada@uni.edu" || req.Password != "hunter2" {
			reply(w, http.StatusUnauthorized, false, "Invalid email or password", nil)
			return
		}
		reply(w, http.StatusOK, true, "", f.issue())
	})
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fail := f.refreshFail
		f.mu.Unlock()
		if fail {
			reply(w, http.StatusUnauthorized, false, "Invalid refresh token", nil)
			return
		}
		reply(w, http.StatusOK, true, "", f.issue())
	})
	mux.HandleFunc("GET /api/v1/users/me", f.authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, true, "", fakeUser())
	}))
	mux.HandleFunc("GET /api/v1/schools", f.authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, true, "", []map[string]any{
			{"id": 1, "name": "Uni A", "city": "Perth"},
			{"id": 2, "name": "Uni B", "city": "Hobart"},
		})
	}))
	mux.HandleFunc("GET /api/v1/departments", f.authed(func(w http.ResponseWriter, r *http.Request) {
		school, _ := strconv.Atoi(r.URL.Query().Get("schoolId"))
		reply(w, http.StatusOK, true, "", []map[string]any{
			{"id": 10, "code": "CS" + strconv.Itoa(school), "name": "Computing", "schoolId": school, "courseCount": 12},
		})
	}))
	mux.HandleFunc("GET /api/v1/notes/trending", f.authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, true, "", map[string]any{
			"content": []map[string]any{{"id": 5, "title": "Graph theory summary", "type": "SUMMARY", "courseCode": "MATH1001"}},
			"page":    0, "size": 20, "totalElements": 1, "totalPages": 1, "first": true, "last": true,
		})
	}))

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func fakeUser() map[string]any {
	return map[string]any{
		"id": 7, "email": "ada@uni.edu", "name": "Ada", "role": "STUDENT",
		"schoolId": 3, "schoolName": "Uni C",
	}
}

func (f *fakeAPI) issue() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.access = "access-" + strconv.Itoa(f.gen)
	f.refresh = "refresh-" + strconv.Itoa(f.gen)
	return map[string]any{
		"accessToken": f.access, "refreshToken": f.refresh, "tokenType": "Bearer",
		"expiresIn": 900, "user": fakeUser(),
	}
}

func (f *fakeAPI) expire(failRefresh bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.access = "access-" + strconv.Itoa(f.gen)
	f.refreshFail = failRefresh
}

func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		want := "Bearer " + f.access
		f.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			reply(w, http.StatusUnauthorized, false, "Unauthorized", nil)
			return
		}
		next(w, r)
	}
}

func reply(w http.ResponseWriter, status int, ok bool, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": ok, "message": msg, "data": data})
}

// harness runs CLI invocations against a fake API with a session file in a
// temp directory.
type harness struct {
	t       *testing.T
	dir     string
	config  string
	metrics string
}

func newHarness(t *testing.T, f *fakeAPI) *harness {
	t.Helper()

	dir := isolate(t)
	cfg := fmt.Sprintf(`
api_url: %q
env: "test"
no_rate_limit: true
log:
  level: "error"
store:
  driver: "file"
  path: %q
`, f.srv.URL+"/api/v1", filepath.Join(dir, "session.json"))

	return &harness{
		t:       t,
		dir:     dir,
		config:  writeFile(t, dir, "config.yaml", cfg),
		metrics: filepath.Join(dir, "moondance.prom"),
	}
}

func (h *harness) run(stdin string, args ...string) (code int, stdout, stderr string) {
	h.t.Helper()

	var out, errOut bytes.Buffer
	full := append([]string{"-config", h.config, "-metrics-file", h.metrics}, args...)
	code = Run(context.Background(), full, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestLoginWhoamiLogout(t *testing.T) {
	f := newFakeAPI(t)
	h := newHarness(t, f)

	code, out, errOut := h.run("", "login", "-email", "ada@uni.edu", "-password", "hunter2")
	require.Equal(t, ExitOK, code, errOut)
	require.Contains(t, out, "signed in as Ada <ada@uni.edu>")

	// The session file outlives the process
	info, err := os.Stat(filepath.Join(h.dir, "session.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	code, out, _ = h.run("", "whoami")
	require.Equal(t, ExitOK, code)
	require.Contains(t, out, "ada@uni.edu")
	require.Contains(t, out, "STUDENT")

	code, out, _ = h.run("", "-json", "whoami", "-refresh")
	require.Equal(t, ExitOK, code)
	var me map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	require.Equal(t, "Uni C", me["schoolName"])

	code, out, _ = h.run("", "logout")
	require.Equal(t, ExitOK, code)
	require.Contains(t, out, "signed out")

	code, _, errOut = h.run("", "whoami")
	require.Equal(t, ExitError, code)
	require.Contains(t, errOut, "not logged in")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	f := newFakeAPI(t)
	h := newHarness(t, f)

	code, _, errOut := h.run("hunter2\n", "login", "-email", "ada@uni.edu")
	require.Equal(t, ExitOK, code, errOut)

	code, _, errOut = h.run("wrong\n", "login", "-email", "ada@uni.edu")
	require.Equal(t, ExitError, code)
	require.Contains(t, errOut, "Invalid email or password")
}

func TestRenewalIsTransparent(t *testing.T) {
	f := newFakeAPI(t)
	h := newHarness(t, f)

	code, _, _ := h.run("", "login", "-email", "ada@uni.edu", "-password", "hunter2")
	require.Equal(t, ExitOK, code)

	f.expire(false)

	code, out, errOut := h.run("", "notes", "trending")
	require.Equal(t, ExitOK, code, errOut)
	require.Contains(t, out, "Graph theory summary")

	metrics, err := os.ReadFile(h.metrics)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `moondance_renewals_total{result="success"} 1`)
	require.Contains(t, string(metrics), "moondance_replays_total 1")
}

func TestSessionExpiredExitCode(t *testing.T) {
	f := newFakeAPI(t)
	h := newHarness(t, f)

	code, _, _ := h.run("", "login", "-email", "ada@uni.edu", "-password", "hunter2")
	require.Equal(t, ExitOK, code)

	f.expire(true)

	code, _, errOut := h.run("", "notes", "trending")
	require.Equal(t, ExitLoginRequired, code)
	require.Contains(t, errOut, "session expired, please log in again")

	metrics, err := os.ReadFile(h.metrics)
	require.NoError(t, err)
	require.Contains(t, string(metrics), `moondance_renewals_total{result="failure"} 1`)
	require.Contains(t, string(metrics), `moondance_terminal_failures_total{reason="session_expired"} 1`)

	// The persisted session is gone too
	code, _, errOut = h.run("", "whoami")
	require.Equal(t, ExitError, code)
	require.Contains(t, errOut, "not logged in")
}

func TestSchoolsWithDepartments(t *testing.T) {
	f := newFakeAPI(t)
	h := newHarness(t, f)

	code, _, _ := h.run("", "login", "-email", "ada@uni.edu", "-password", "hunter2")
	require.Equal(t, ExitOK, code)

	code, out, errOut := h.run("", "-json", "schools", "-departments")
	require.Equal(t, ExitOK, code, errOut)

	var listing []schoolListing
	require.NoError(t, json.Unmarshal([]byte(out), &listing))
	require.Len(t, listing, 2)
	for _, s := range listing {
		require.Len(t, s.Departments, 1)
		require.Equal(t, "CS"+strconv.FormatInt(s.ID, 10), s.Departments[0].Code)
	}
}

func TestUsageErrors(t *testing.T) {
	f := newFakeAPI(t)
	h := newHarness(t, f)

	code, _, errOut := h.run("", "teleport")
	require.Equal(t, ExitUsage, code)
	require.Contains(t, errOut, `unknown command "teleport"`)

	code, _, errOut = h.run("", "notes", "get", "abc")
	require.Equal(t, ExitUsage, code)
	require.Contains(t, errOut, "usage: moondance notes")

	code, _, _ = h.run("", "profile", "update")
	require.Equal(t, ExitUsage, code)
}
