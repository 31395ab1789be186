package domain

// User is an account allowed to sign in to the CRM.
type User struct {
	Audit
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}

const DefaultRole = "User"

func (u *User) IsActive() bool {
	return u != nil && !u.IsDeleted
}
