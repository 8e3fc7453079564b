package models

// Session is the identity supplied by the session provider.
type Session struct {
	Authenticated bool
	Token         string
	UserID        string
}

// Credential returns the bearer credential, empty when unauthenticated.
func (s Session) Credential() string {
	if !s.Authenticated {
		return ""
	}
	return s.Token
}
