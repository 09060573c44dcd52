package session

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/contenttype"
)

// UserIDKey is the session value holding the id of the logged in user.
const UserIDKey = "_auth_user_id"

var SessionModel = contenttype.Model{
	AppLabel:    "users",
	Name:        "session",
	Table:       "users_session",
	VerboseName: "session",
	Columns:     []string{"session_key", "session_data", "expire_date", "user_id", "user_agent", "last_activity", "ip"},
}

func RegisterContentTypes(r *contenttype.Registry) {
	r.Register(SessionModel)
}

type Session struct {
	Key          string      `json:"session_key" db:"session_key"`
	Data         string      `json:"session_data" db:"session_data"`
	ExpireDate   time.Time   `json:"expire_date" db:"expire_date"` // UTC
	UserID       null.Int    `json:"user_id" db:"user_id"`
	UserAgent    null.String `json:"user_agent" db:"user_agent"`
	LastActivity time.Time   `json:"last_activity" db:"last_activity"` // UTC
	IP           null.String `json:"ip" db:"ip"`
}

// IsValid reports whether the session has not expired at `now`.
func (s Session) IsValid(now time.Time) bool {
	return s.ExpireDate.After(now)
}

func (s Session) String() string {
	user := "-"
	if s.UserID.Valid {
		user = fmt.Sprint(s.UserID.Int)
	}
	return fmt.Sprintf("Session %s (User: %s, IP: %s, Device: %s, Expires: %s)",
		s.Key, user, s.IP.String, Device(s.UserAgent.String), s.ExpireDate.Format(time.RFC3339))
}

// Meta describes the request that owns a session.
type Meta struct {
	UserID    null.Int
	UserAgent string
	IP        string
}

// Filter applies AND on the set fields.
type Filter struct {
	// Valid true keeps sessions with expire_date > now, false those with expire_date <= now.
	Valid *bool
	// Search matches the ip or the user id.
	Search string
	UserID *int
}

// Detail is a session along with its decoded data, for display.
type Detail struct {
	Session
	Decoded map[string]interface{} `json:"decoded"`
	IsValid bool                   `json:"is_valid"`
	Device  string                 `json:"device"`
}
