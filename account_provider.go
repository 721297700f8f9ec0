package credentials

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// AccountStore is the lookup surface the provider needs from persistence
type AccountStore interface {
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error)
}

// AccountProvider resolves identifiers to identities and verifies passwords
type AccountProvider struct {
	store     AccountStore
	Validator func(*Account) error
	logger    Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountStore) *AccountProvider {
	return &AccountProvider{
		store:     store,
		logger:    defLogger{},
		Validator: defaultAccountValidator,
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *AccountProvider) validate(account *Account) error {
	if p.Validator != nil {
		return p.Validator(account)
	}
	return defaultAccountValidator(account)
}

// VerifyIdentity will find the account, compare the password, and return the
// identity. Unknown identifier and wrong password both surface as
// ErrInvalidCredentials so the response never reveals which one failed.
func (p AccountProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if account == nil {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, err
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return accountIdentity{
		id:       account.ID.String(),
		email:    account.Email,
		username: account.Username,
		roles:    account.RoleStrings(),
	}, nil
}

func (p AccountProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if account == nil {
		return nil, ErrIdentityNotFound
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return accountIdentity{
		id:       account.ID.String(),
		email:    account.Email,
		username: account.Username,
		roles:    account.RoleStrings(),
	}, nil
}

type accountIdentity struct {
	id       string
	username string
	email    string
	roles    []string
}

func (a accountIdentity) ID() string {
	return a.id
}

func (a accountIdentity) Username() string {
	return a.username
}

func (a accountIdentity) Email() string {
	return a.email
}

func (a accountIdentity) Roles() []string {
	if len(a.roles) == 0 {
		return []string{RoleMember}
	}
	return a.roles
}

var _ Identity = accountIdentity{}

func defaultAccountValidator(a *Account) error {
	for _, role := range a.Roles {
		if !IsValidRole(role) {
			return errors.New("account has an unknown or invalid role", errors.CategoryAuth).
				WithTextCode("INVALID_ROLE").
				WithMetadata(map[string]any{"role": role, "account_id": a.ID.String()})
		}
	}
	return nil
}
