package users

import "launchpad/pkg/profiles"

// Account is the credential record behind a profile. The password hash
// never leaves this package.
type Account struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	AccType      profiles.AccType `json:"accType"`
	PasswordHash string           `json:"passwordHash,omitempty"`
	CreatedAt    int64            `json:"createdAt"`
	VerifiedAt   *int64           `json:"verifiedAt,omitempty"`
}

// Public strips the credential fields.
func (a Account) Public() Account {
	a.PasswordHash = ""
	return a
}

type AuthResult struct {
	Token   string  `json:"token"`
	Account Account `json:"account"`
}
