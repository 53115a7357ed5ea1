package user

import "strings"

type User struct {
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Password []byte `json:"-"`
	Id       string `json:"id"`
}

// DisplayName is what shows up next to authored content: the full
// name when set, otherwise the local part of the email, otherwise a
// generic label.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	if u.Email != "" {
		return u.Email
	}
	return "User"
}
