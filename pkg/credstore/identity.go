package credstore

import (
	"encoding/json"
	"fmt"
)

// Role is the platform role of a user.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Identity is the cached profile of the signed-in user. It is a snapshot
// taken at login and may drift from the server's copy.
type Identity struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Major            string `json:"major,omitempty"`
	GraduationYear   int    `json:"graduationYear,omitempty"`
	AvatarURL        string `json:"avatarUrl,omitempty"`
	Role             Role   `json:"role"`
	ReputationPoints int    `json:"reputationPoints"`
	EmailVerified    bool   `json:"emailVerified"`
	SchoolID         int64  `json:"schoolId,omitempty"`
	SchoolName       string `json:"schoolName,omitempty"`

	// CreatedAt is kept verbatim; the server sends a zone-less local time.
	CreatedAt string `json:"createdAt,omitempty"`
}

// Validate checks the fields the client relies on.
func (i Identity) Validate() error {
	switch {
	case i.ID <= 0:
		return fmt.Errorf("%w: missing id", ErrInvalidIdentity)
	case i.Email == "":
		return fmt.Errorf("%w: missing email", ErrInvalidIdentity)
	case !i.Role.Valid():
		return fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, i.Role)
	}
	return nil
}

// IsModerator reports whether the user may review reports.
func (i Identity) IsModerator() bool {
	return i.Role == RoleModerator || i.Role == RoleAdmin
}

func encodeIdentity(i Identity) ([]byte, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("failed to encode identity: %w", err)
	}
	return b, nil
}

func decodeIdentity(b []byte) (Identity, error) {
	var i Identity
	if err := json.Unmarshal(b, &i); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if err := i.Validate(); err != nil {
		return Identity{}, err
	}
	return i, nil
}
