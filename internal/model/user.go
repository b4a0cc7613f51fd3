package model

type UserID string

type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Session is what an auth provider resolves a request to. A request either
// has one or it does not.
type Session struct {
	User User `json:"user"`
}
