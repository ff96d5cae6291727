package notesdk

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/moondance/pkg/slogx"
	"github.com/aussiebroadwan/moondance/pkg/tokenx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ada@uni.edu"
	testPassword = "hunter2"
)

var testSigningKey = []byte("moondance-test-signing-key")

func testUser() User {
	return User{
		ID:       7,
		Email:    testEmail,
		Name:     "Ada",
		Role:     RoleStudent,
		SchoolID: 3,
	}
}

// fakeAPI is an in-process stand-in for the Moondance API. It accepts
// exactly one access token at a time; expire rotates it server side.
type fakeAPI struct {
	srv *httptest.Server

	mu      sync.Mutex
	gen     int
	access  string
	refresh string
	user    User

	// refresh behaviour
	refreshGate   chan struct{}
	refreshStatus int
	refreshHangup bool
	omitRefresh   bool

	refreshCalls atomic.Int32
	rejected     atomic.Int32 // 401s sent to requests that carried a token
	served       atomic.Int32 // authenticated requests that succeeded
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{user: testUser()}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", f.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/register", f.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/refresh", f.handleRefresh)

	mux.HandleFunc("GET /api/v1/users/me", f.authed(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		user := f.user
		f.mu.Unlock()
		writeData(w, http.StatusOK, user)
	}))
	mux.HandleFunc("PATCH /api/v1/users/me", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var req UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad body", nil)
			return
		}
		f.mu.Lock()
		if req.Name != nil {
			f.user.Name = *req.Name
		}
		if req.Major != nil {
			f.user.Major = *req.Major
		}
		user := f.user
		f.mu.Unlock()
		writeData(w, http.StatusOK, user)
	}))

	mux.HandleFunc("GET /api/v1/notes/trending", f.authed(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		writeData(w, http.StatusOK, Page[Note]{
			Content:       []Note{{ID: 1, Title: "Week 1"}, {ID: 2, Title: "Week 2"}},
			Page:          page,
			Size:          2,
			TotalElements: 4,
			TotalPages:    2,
			First:         page == 0,
			Last:          page == 1,
		})
	}))
	mux.HandleFunc("GET /api/v1/notes/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if id == 404 {
			writeError(w, http.StatusNotFound, "Note not found", nil)
			return
		}
		writeData(w, http.StatusOK, Note{ID: id, Title: "Lecture " + r.PathValue("id"), Type: NoteLectureNotes})
	}))
	mux.HandleFunc("PATCH /api/v1/notes/{id}", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var req UpdateNoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
			writeError(w, http.StatusBadRequest, "Validation failed", map[string]string{"title": "must not be blank"})
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		writeData(w, http.StatusOK, Note{ID: id, Title: req.Title})
	}))
	mux.HandleFunc("POST /api/v1/notes", f.authed(f.handleUpload))
	mux.HandleFunc("GET /api/v1/notes/{id}/download", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, "https://files.example/"+r.PathValue("id"))
	}))
	mux.HandleFunc("GET /api/v1/notes/{id}/my-vote", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, nil)
	}))
	mux.HandleFunc("POST /api/v1/notes/{id}/vote", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var req voteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		writeData(w, http.StatusOK, Vote{ID: 1, NoteID: id, UserID: 7, Value: req.Value, Rating: req.Rating})
	}))
	mux.HandleFunc("GET /api/v1/tags/search", f.authed(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []Tag{{ID: 1, Name: r.URL.Query().Get("query")}})
	}))
	mux.HandleFunc("GET /api/v1/courses/search", f.authed(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		writeData(w, http.StatusOK, Page[Course]{
			Content: []Course{{ID: 11, Code: q.Get("query"), Title: "school " + q.Get("schoolId") + " size " + q.Get("size")}},
		})
	}))
	mux.HandleFunc("POST /api/v1/auth/change-password", f.authed(func(w http.ResponseWriter, r *http.Request) {
		var req ChangePasswordRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.CurrentPassword != testPassword {
			writeError(w, http.StatusUnauthorized, "Current password is incorrect", nil)
			return
		}
		writeData(w, http.StatusOK, nil)
	}))

	// Always refuses, even a freshly renewed token.
	mux.HandleFunc("GET /api/v1/reports/pending", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			f.rejected.Add(1)
		}
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) baseURL() string { return f.srv.URL + "/api/v1" }

// expire invalidates the current access token server side.
func (f *fakeAPI) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.access = mintToken(f.gen, tokenx.TypeAccess)
}

func (f *fakeAPI) currentAccess() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

func (f *fakeAPI) issueLocked() AuthResponse {
	f.gen++
	f.access = mintToken(f.gen, tokenx.TypeAccess)
	f.refresh = mintToken(f.gen, tokenx.TypeRefresh)
	return AuthResponse{
		AccessToken:  f.access,
		RefreshToken: f.refresh,
		TokenType:    "Bearer",
		ExpiresIn:    900,
	}
}

func mintToken(gen int, typ string) string {
	now := time.Now()
	claims := tokenx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ID:        typ + "-" + strconv.Itoa(gen),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		Role: string(RoleStudent),
		Type: typ,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		panic(err)
	}
	return s
}

func (f *fakeAPI) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		access := f.access
		f.mu.Unlock()

		got := r.Header.Get("Authorization")
		if access == "" || got != "Bearer "+access {
			if got != "" {
				f.rejected.Add(1)
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		f.served.Add(1)
		next(w, r)
	}
}

func (f *fakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body", nil)
		return
	}
	if req.Email != testEmail || req.Password != testPassword {
		writeError(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}

	f.mu.Lock()
	resp := f.issueLocked()
	if f.omitRefresh {
		resp.RefreshToken = ""
	}
	user := f.user
	f.mu.Unlock()

	resp.User = &user
	writeData(w, http.StatusOK, resp)
}

func (f *fakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body", nil)
		return
	}
	if req.Email == testEmail {
		writeError(w, http.StatusConflict, "Email already registered", nil)
		return
	}

	f.mu.Lock()
	f.user = User{ID: 8, Email: req.Email, Name: req.Name, Major: req.Major, Role: RoleStudent, SchoolID: 3}
	resp := f.issueLocked()
	user := f.user
	f.mu.Unlock()

	resp.User = &user
	writeData(w, http.StatusCreated, resp)
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)

	f.mu.Lock()
	gate := f.refreshGate
	status := f.refreshStatus
	hangup := f.refreshHangup
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if hangup {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
		return
	}
	if status != 0 {
		writeError(w, status, "Invalid refresh token", nil)
		return
	}

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body", nil)
		return
	}

	f.mu.Lock()
	if req.RefreshToken != f.refresh {
		f.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid refresh token", nil)
		return
	}
	resp := f.issueLocked()
	f.mu.Unlock()

	writeData(w, http.StatusOK, resp)
}

func (f *fakeAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "bad form", nil)
		return
	}

	var req CreateNoteRequest
	if err := json.Unmarshal([]byte(r.FormValue("data")), &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad data part", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file", nil)
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	writeData(w, http.StatusCreated, Note{
		ID:               99,
		Title:            req.Title,
		Type:             req.Type,
		CourseSessionID:  req.CourseSessionID,
		Tags:             req.Tags,
		OriginalFileName: header.Filename,
		MimeType:         header.Header.Get("Content-Type"),
		FileSize:         int64(len(data)),
		ProcessingStatus: ProcessingPending,
	})
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope[any]{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := envelope[any]{Success: false, Message: msg, Timestamp: time.Now().Format(time.RFC3339)}
	if fields != nil {
		env.Data = fields
	}
	_ = json.NewEncoder(w).Encode(env)
}

// recordingObserver counts renewal events.
type recordingObserver struct {
	renewals atomic.Int32
	failures atomic.Int32
	joined   atomic.Int32
	replays  atomic.Int32
	rejected atomic.Int32
}

func (o *recordingObserver) RenewalFinished(err error, _ time.Duration) {
	o.renewals.Add(1)
	if err != nil {
		o.failures.Add(1)
	}
}
func (o *recordingObserver) RenewalJoined()        { o.joined.Add(1) }
func (o *recordingObserver) RequestReplayed()      { o.replays.Add(1) }
func (o *recordingObserver) RequestRejected(error) { o.rejected.Add(1) }

type testClient struct {
	*Client
	obs      *recordingObserver
	required atomic.Int32
}

func newTestClient(t *testing.T, f *fakeAPI) *testClient {
	t.Helper()

	tc := &testClient{obs: &recordingObserver{}}
	c, err := New(Config{
		BaseURL:  f.baseURL(),
		Logger:   slogx.Discard(),
		Observer: tc.obs,
		OnLoginRequired: func(error) {
			tc.required.Add(1)
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	tc.Client = c
	return tc
}

func loggedIn(t *testing.T, f *fakeAPI) *testClient {
	t.Helper()

	tc := newTestClient(t, f)
	_, err := tc.Session().Login(t.Context(), testEmail, testPassword)
	require.NoError(t, err)
	return tc
}

// holdRefresh makes refresh calls block until release is called.
func (f *fakeAPI) holdRefresh() (release func()) {
	gate := make(chan struct{})

	f.mu.Lock()
	f.refreshGate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *fakeAPI) failRefresh(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshStatus = status
}

func (f *fakeAPI) hangupRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshHangup = true
}

// withoutRefreshTokens makes login answer without a refresh token.
func (f *fakeAPI) withoutRefreshTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.omitRefresh = true
}
