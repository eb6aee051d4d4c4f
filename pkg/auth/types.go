package auth

import "time"

// Capability names one grantable action, for example "user.add".
type Capability string

// Wildcard grants every capability.
const Wildcard Capability = "*"

// Decision is the outcome of a capability check.
type Decision int

const (
	Granted Decision = iota
	NoSession
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case NoSession:
		return "no_session"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Session is the principal behind a resolved access token.
type Session struct {
	TokenID       int64
	UserID        int64
	UserName      string
	UserDisabled  bool
	AllowMulti    bool
	GroupID       *int64
	GroupName     string
	GroupDisabled bool
	Permission    string
	LastUsedAt    time.Time
}

// InGroup reports whether the session's principal belongs to the group.
func (s *Session) InGroup(groupID int64) bool {
	return s != nil && s.GroupID != nil && *s.GroupID == groupID
}
