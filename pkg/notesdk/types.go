package notesdk

import (
	"net/url"
	"strconv"

	"github.com/aussiebroadwan/moondance/pkg/credstore"
)

// ============================================================================
// Envelope
// ============================================================================

// envelope is the wrapper every API response arrives in.
type envelope[T any] struct {
	// Success is false for error responses
	Success bool `json:"success"`

	// Message is a human-readable status message
	Message string `json:"message,omitempty"`

	// Data is the payload
	Data T `json:"data"`

	// Timestamp is the server's local time of the response
	Timestamp string `json:"timestamp,omitempty"`
}

// Page is one page of a paged listing.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// PageRequest selects a page of a listing. Zero values use server defaults.
type PageRequest struct {
	// Page is zero-based
	Page int

	// Size is the page size; the server defaults to 20
	Size int

	// Sort is a Spring-style sort expression, e.g. "createdAt,desc"
	Sort string
}

func (p PageRequest) apply(q url.Values) url.Values {
	if q == nil {
		q = url.Values{}
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		q.Set("size", strconv.Itoa(p.Size))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	return q
}

// ============================================================================
// Auth
// ============================================================================

// User is the profile of a platform user. It is the same record the
// credential store caches for the signed-in user.
type User = credstore.Identity

// Role is the platform role of a user.
type Role = credstore.Role

const (
	RoleStudent   = credstore.RoleStudent
	RoleModerator = credstore.RoleModerator
	RoleAdmin     = credstore.RoleAdmin
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`

	// Major is optional
	Major string `json:"major,omitempty"`

	// GraduationYear is optional
	GraduationYear int `json:"graduationYear,omitempty"`

	// InviteCode is required only on invite-gated deployments
	InviteCode string `json:"inviteCode,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`

	// TokenType is always "Bearer"
	TokenType string `json:"tokenType,omitempty"`

	// ExpiresIn is the access token lifetime in seconds (advisory)
	ExpiresIn int64 `json:"expiresIn"`

	// User is absent on some refresh responses
	User *User `json:"user,omitempty"`
}

// Pair returns the credential pair of the response.
func (r *AuthResponse) Pair() credstore.Pair {
	return credstore.Pair{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
	}
}

// ChangePasswordRequest is the body of POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdateProfileRequest is the body of PATCH /users/me. Nil fields are left
// unchanged.
type UpdateProfileRequest struct {
	Name           *string `json:"name,omitempty"`
	Major          *string `json:"major,omitempty"`
	GraduationYear *int    `json:"graduationYear,omitempty"`
	AvatarURL      *string `json:"avatarUrl,omitempty"`
}

// ============================================================================
// Catalog
// ============================================================================

type School struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Domain  string `json:"domain,omitempty"`
	LogoURL string `json:"logoUrl,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

type Department struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SchoolID    int64  `json:"schoolId"`
	CourseCount int    `json:"courseCount"`
}

type Course struct {
	ID             int64  `json:"id"`
	Code           string `json:"code"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Credits        int    `json:"credits,omitempty"`
	DepartmentID   int64  `json:"departmentId"`
	DepartmentName string `json:"departmentName,omitempty"`
}

// SessionType is the kind of academic term.
type SessionType string

const (
	SessionFall      SessionType = "FALL"
	SessionSpring    SessionType = "SPRING"
	SessionSummer    SessionType = "SUMMER"
	SessionWinter    SessionType = "WINTER"
	SessionYearRound SessionType = "YEAR_ROUND"
)

// AcademicSession is a term a course runs in, e.g. "Fall 2025".
type AcademicSession struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Type      SessionType `json:"type"`
	Year      int         `json:"year"`
	StartDate string      `json:"startDate,omitempty"`
	EndDate   string      `json:"endDate,omitempty"`
}

type Instructor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Title          string `json:"title,omitempty"`
	DepartmentID   int64  `json:"departmentId,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
}

// CourseSession is one offering of a course in a term by an instructor.
type CourseSession struct {
	ID             int64  `json:"id"`
	CourseID       int64  `json:"courseId"`
	CourseCode     string `json:"courseCode"`
	CourseTitle    string `json:"courseTitle"`
	SessionID      int64  `json:"sessionId"`
	SessionName    string `json:"sessionName"`
	InstructorID   int64  `json:"instructorId,omitempty"`
	InstructorName string `json:"instructorName,omitempty"`
	Section        string `json:"section,omitempty"`
	NoteCount      int64  `json:"noteCount"`
	TotalDownloads int64  `json:"totalDownloads"`
}

// ============================================================================
// Notes
// ============================================================================

type NoteType string

const (
	NoteLectureNotes   NoteType = "LECTURE_NOTES"
	NoteExamPrep       NoteType = "EXAM_PREP"
	NoteCheatSheet     NoteType = "CHEAT_SHEET"
	NoteSummary        NoteType = "SUMMARY"
	NoteLabGuide       NoteType = "LAB_GUIDE"
	NoteCodingExamples NoteType = "CODING_EXAMPLES"
	NotePastExam       NoteType = "PAST_EXAM"
	NoteOther          NoteType = "OTHER"
)

// NoteTypes lists every note type in display order.
var NoteTypes = []NoteType{
	NoteLectureNotes, NoteExamPrep, NoteCheatSheet, NoteSummary,
	NoteLabGuide, NoteCodingExamples, NotePastExam, NoteOther,
}

// Valid reports whether t is a known note type.
func (t NoteType) Valid() bool {
	for _, v := range NoteTypes {
		if v == t {
			return true
		}
	}
	return false
}

type ProcessingStatus string

const (
	ProcessingPending    ProcessingStatus = "PENDING"
	ProcessingInProgress ProcessingStatus = "PROCESSING"
	ProcessingReady      ProcessingStatus = "READY"
	ProcessingFailed     ProcessingStatus = "FAILED"
)

type Note struct {
	ID                int64            `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description,omitempty"`
	Type              NoteType         `json:"type"`
	FileKey           string           `json:"fileKey,omitempty"`
	FileSize          int64            `json:"fileSize"`
	MimeType          string           `json:"mimeType,omitempty"`
	OriginalFileName  string           `json:"originalFileName,omitempty"`
	ThumbnailURL      string           `json:"thumbnailUrl,omitempty"`
	ProcessingStatus  ProcessingStatus `json:"processingStatus"`
	WeekLabel         string           `json:"weekLabel,omitempty"`
	CourseSessionID   int64            `json:"courseSessionId"`
	CourseCode        string           `json:"courseCode,omitempty"`
	CourseTitle       string           `json:"courseTitle,omitempty"`
	SessionName       string           `json:"sessionName,omitempty"`
	InstructorName    string           `json:"instructorName,omitempty"`
	UploaderID        int64            `json:"uploaderId"`
	UploaderName      string           `json:"uploaderName,omitempty"`
	UploaderAvatarURL string           `json:"uploaderAvatarUrl,omitempty"`
	Tags              []string         `json:"tags,omitempty"`
	ViewCount         int              `json:"viewCount"`
	DownloadCount     int              `json:"downloadCount"`
	AverageRating     float64          `json:"averageRating"`
	VoteCount         int              `json:"voteCount"`
	CreatedAt         string           `json:"createdAt,omitempty"`
	UpdatedAt         string           `json:"updatedAt,omitempty"`
}

// CreateNoteRequest is the "data" part of a note upload.
type CreateNoteRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	Type            NoteType `json:"type"`
	CourseSessionID int64    `json:"courseSessionId"`
	WeekLabel       string   `json:"weekLabel,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// UpdateNoteRequest is the body of PATCH /notes/{id}. Empty fields are left
// unchanged.
type UpdateNoteRequest struct {
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        NoteType `json:"type,omitempty"`
	WeekLabel   string   `json:"weekLabel,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ============================================================================
// Interactions
// ============================================================================

type Vote struct {
	ID        int64  `json:"id"`
	NoteID    int64  `json:"noteId"`
	UserID    int64  `json:"userId"`
	Value     int    `json:"value"`
	Rating    *int   `json:"rating,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type voteRequest struct {
	Value  int  `json:"value"`
	Rating *int `json:"rating,omitempty"`
}

type ReportReason string

const (
	ReportSpam          ReportReason = "SPAM"
	ReportCopyright     ReportReason = "COPYRIGHT"
	ReportWrongCourse   ReportReason = "WRONG_COURSE"
	ReportInappropriate ReportReason = "INAPPROPRIATE"
	ReportLowQuality    ReportReason = "LOW_QUALITY"
	ReportOther         ReportReason = "OTHER"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "PENDING"
	ReportReviewed  ReportStatus = "REVIEWED"
	ReportResolved  ReportStatus = "RESOLVED"
	ReportDismissed ReportStatus = "DISMISSED"
)

type Report struct {
	ID             int64        `json:"id"`
	NoteID         int64        `json:"noteId"`
	NoteTitle      string       `json:"noteTitle,omitempty"`
	ReporterID     int64        `json:"reporterId"`
	ReporterName   string       `json:"reporterName,omitempty"`
	Reason         ReportReason `json:"reason"`
	Description    string       `json:"description,omitempty"`
	Status         ReportStatus `json:"status"`
	ModeratorNotes string       `json:"moderatorNotes,omitempty"`
	ReviewedAt     string       `json:"reviewedAt,omitempty"`
	CreatedAt      string       `json:"createdAt,omitempty"`
}

type reportRequest struct {
	Reason      ReportReason `json:"reason"`
	Description string       `json:"description,omitempty"`
}

type reviewRequest struct {
	Status         ReportStatus `json:"status"`
	ModeratorNotes string       `json:"moderatorNotes,omitempty"`
}

type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}
