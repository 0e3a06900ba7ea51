package models

// UserSession is the persisted form of a login session, used by the
// session_db_auth strategy. CreatedAt (from Entity) is the session start.
type UserSession struct {
	Entity
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// SessionByID matches the record for an opaque session id.
func SessionByID(sessionID string) func(*UserSession) bool {
	return func(s *UserSession) bool { return s.SessionID == sessionID }
}
