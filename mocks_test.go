package credentials_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	credentials "github.com/goliatone/go-credentials"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// testConfig implements credentials.Config with per class secrets and TTLs.
type testConfig struct {
	activationSecret string
	accessSecret     string
	refreshSecret    string
	activationTTL    time.Duration
	accessTTL        time.Duration
	refreshTTL       time.Duration
}

func newTestConfig() *testConfig {
	return &testConfig{
		activationSecret: "activation-secret",
		accessSecret:     "access-secret",
		refreshSecret:    "refresh-secret",
		activationTTL:    15 * time.Minute,
		accessTTL:        10 * time.Second,
		refreshTTL:       24 * time.Hour,
	}
}

func (c *testConfig) GetActivationSecret() string     { return c.activationSecret }
func (c *testConfig) GetAccessSecret() string         { return c.accessSecret }
func (c *testConfig) GetRefreshSecret() string        { return c.refreshSecret }
func (c *testConfig) GetActivationTTL() time.Duration { return c.activationTTL }
func (c *testConfig) GetAccessTTL() time.Duration     { return c.accessTTL }
func (c *testConfig) GetRefreshTTL() time.Duration    { return c.refreshTTL }
func (c *testConfig) GetCodeLength() int              { return credentials.DefaultCodeLength }
func (c *testConfig) GetCodeAlphabet() string         { return credentials.DefaultCodeAlphabet }
func (c *testConfig) GetIssuer() string               { return "credentials-test" }
func (c *testConfig) GetAudience() []string           { return []string{"test-clients"} }
func (c *testConfig) GetSigningMethod() string        { return "HS256" }
func (c *testConfig) GetContextKey() string           { return "user" }
func (c *testConfig) GetTokenLookup() string          { return "header:Authorization" }
func (c *testConfig) GetAuthScheme() string           { return "Bearer" }
func (c *testConfig) GetRefreshCookieName() string    { return "refresh_token" }

// stubAccounts is an in-memory Accounts store. The embedded interface covers
// the repository surface the tests never touch.
type stubAccounts struct {
	credentials.Accounts

	mu      sync.Mutex
	records map[uuid.UUID]*credentials.Account
}

func newStubAccounts() *stubAccounts {
	return &stubAccounts{
		records: map[uuid.UUID]*credentials.Account{},
	}
}

func (s *stubAccounts) add(record *credentials.Account) *credentials.Account {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return record
}

func (s *stubAccounts) get(id uuid.UUID) *credentials.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func notFoundErr(meta map[string]any) error {
	return repository.NewRecordNotFound().WithMetadata(meta)
}

func (s *stubAccounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*credentials.Account, error) {
	return s.GetByIdentifierTx(ctx, nil, identifier, criteria...)
}

func (s *stubAccounts) GetByIdentifierTx(_ context.Context, _ bun.IDB, identifier string, _ ...repository.SelectCriteria) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Username == identifier {
			return record, nil
		}
	}
	for _, record := range s.records {
		if record.Email == identifier {
			return record, nil
		}
	}
	return nil, notFoundErr(map[string]any{"identifier": identifier})
}

func (s *stubAccounts) GetByEmail(ctx context.Context, email string) (*credentials.Account, error) {
	return s.GetByEmailTx(ctx, nil, email)
}

func (s *stubAccounts) GetByEmailTx(_ context.Context, _ bun.IDB, email string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Email == email {
			return record, nil
		}
	}
	return nil, notFoundErr(map[string]any{"email": email})
}

func (s *stubAccounts) GetByRefreshToken(ctx context.Context, token string) (*credentials.Account, error) {
	return s.GetByRefreshTokenTx(ctx, nil, token)
}

func (s *stubAccounts) GetByRefreshTokenTx(_ context.Context, _ bun.IDB, token string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.RefreshToken != nil && *record.RefreshToken == token {
			return record, nil
		}
	}
	return nil, notFoundErr(nil)
}

func (s *stubAccounts) Create(ctx context.Context, record *credentials.Account, criteria ...repository.InsertCriteria) (*credentials.Account, error) {
	return s.CreateTx(ctx, nil, record, criteria...)
}

func (s *stubAccounts) CreateTx(_ context.Context, _ bun.IDB, record *credentials.Account, _ ...repository.InsertCriteria) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if existing.Email == record.Email {
			return nil, errors.New("UNIQUE constraint failed: accounts.email")
		}
		if existing.Username == record.Username {
			return nil, errors.New("UNIQUE constraint failed: accounts.username")
		}
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if len(record.Roles) == 0 {
		record.Roles = []credentials.Role{credentials.RoleMember}
	}

	s.records[record.ID] = record
	return record, nil
}

func (s *stubAccounts) StoreRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	return s.StoreRefreshTokenTx(ctx, nil, id, token)
}

func (s *stubAccounts) StoreRefreshTokenTx(_ context.Context, _ bun.IDB, id uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return notFoundErr(map[string]any{"id": id.String()})
	}
	record.RefreshToken = &token
	return nil
}

func (s *stubAccounts) ClearRefreshToken(ctx context.Context, token string) (bool, error) {
	return s.ClearRefreshTokenTx(ctx, nil, token)
}

func (s *stubAccounts) ClearRefreshTokenTx(_ context.Context, _ bun.IDB, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.RefreshToken != nil && *record.RefreshToken == token {
			record.RefreshToken = nil
			return true, nil
		}
	}
	return false, nil
}

func (s *stubAccounts) ResetPassword(ctx context.Context, email, passwordHash string) (*credentials.Account, error) {
	return s.ResetPasswordTx(ctx, nil, email, passwordHash)
}

func (s *stubAccounts) ResetPasswordTx(_ context.Context, _ bun.IDB, email, passwordHash string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.Email == email {
			record.PasswordHash = passwordHash
			return record, nil
		}
	}
	return nil, notFoundErr(map[string]any{"email": email})
}

// stubRepo implements credentials.RepositoryManager over the in-memory store.
type stubRepo struct {
	accounts *stubAccounts
}

func newStubRepo() *stubRepo {
	return &stubRepo{accounts: newStubAccounts()}
}

func (r *stubRepo) Validate() error {
	if r.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}
	return nil
}

func (r *stubRepo) MustValidate() {
	if err := r.Validate(); err != nil {
		panic(err)
	}
}

func (r *stubRepo) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return f(ctx, bun.Tx{})
	}
}

func (r *stubRepo) Accounts() credentials.Accounts {
	return r.accounts
}

// captureNotifier records notifications instead of delivering them.
type captureNotifier struct {
	mu   sync.Mutex
	sent []credentials.Notification
	err  error
}

func (n *captureNotifier) Notify(_ context.Context, msg credentials.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *captureNotifier) last() (credentials.Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return credentials.Notification{}, false
	}
	return n.sent[len(n.sent)-1], true
}

// seedAccount hashes the password and stores a ready-to-login account.
func seedAccount(store *stubAccounts, name, username, email, password string, roles ...credentials.Role) *credentials.Account {
	hash, err := credentials.HashPassword(password)
	if err != nil {
		panic(fmt.Sprintf("seedAccount: %v", err))
	}
	if len(roles) == 0 {
		roles = []credentials.Role{credentials.RoleMember}
	}
	return store.add(&credentials.Account{
		ID:           uuid.New(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
	})
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	return string(raw)
}

// wrongCode flips the last character so the code keeps its length and
// alphabet but no longer matches.
func wrongCode(code string) string {
	if code == "" {
		return "0"
	}
	last := code[len(code)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	return code[:len(code)-1] + string(replacement)
}
