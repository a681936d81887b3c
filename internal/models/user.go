package models

type AccountType string

const (
	AccountTypePersonal AccountType = "personal"
	AccountTypeMember   AccountType = "member"
)

// User is the profile slice the core reads. Profiles are owned elsewhere.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	University  string      `json:"university,omitempty"`
	AccountType AccountType `json:"account_type,omitempty"`
	HostIDs     []string    `json:"host_ids"`
}

// IsMemberOf reports whether hostID is in the user's membership set.
func (u *User) IsMemberOf(hostID string) bool {
	for _, id := range u.HostIDs {
		if id == hostID {
			return true
		}
	}
	return false
}
