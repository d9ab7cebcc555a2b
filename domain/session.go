package domain

import "time"

// AdminSession is the capability returned by a successful admin check. It is only
// valid for the request that produced it.
type AdminSession struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}

func (s *AdminSession) Valid() bool {
	return s != nil && s.UserID != ""
}
