package credentials

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the persisted account model. RefreshToken mirrors the refresh
// token held by the client; it is the sole server-side proof of an active
// session and is only written by the SessionIssuer (set) and the
// SessionTerminator (cleared).
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	Roles         []Role     `bun:"roles" json:"roles,omitempty"`
	RefreshToken  *string    `bun:"refresh_token,nullzero" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasSession reports whether the account holds a live refresh token.
func (a *Account) HasSession() bool {
	return a != nil && a.RefreshToken != nil && *a.RefreshToken != ""
}

// RoleStrings returns the account roles as plain strings for token claims.
func (a *Account) RoleStrings() []string {
	if a == nil || len(a.Roles) == 0 {
		return nil
	}
	out := make([]string, len(a.Roles))
	copy(out, a.Roles)
	return out
}

// AccountDraft carries the signup fields captured inside a pending activation
// token. The password is hashed before the draft is minted, so plaintext never
// outlives the signup request handler.
type AccountDraft struct {
	Name         string `json:"name,omitempty"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Roles        []Role `json:"roles,omitempty"`
}

// Materialize builds an Account ready to persist from the draft fields.
func (d *AccountDraft) Materialize() *Account {
	if d == nil {
		return nil
	}
	return &Account{
		Name:         d.Name,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Roles:        NormalizeRoles(d.Roles),
	}
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if len(record.Roles) == 0 {
		record.Roles = []Role{RoleMember}
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
