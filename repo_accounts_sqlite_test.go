package credentials_test

import (
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"testing"

	credentials "github.com/goliatone/go-credentials"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupAccountsRepo(t *testing.T) (credentials.Accounts, *bun.DB) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	// apply the packaged up migration statement by statement
	raw, err := fs.ReadFile(credentials.GetMigrationsFS(), "data/sql/migrations/20240101000000_create_accounts.up.sql")
	require.NoError(t, err)

	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		_, err = bunDB.Exec(stmt)
		require.NoError(t, err)
	}

	return credentials.NewAccountsRepository(bunDB), bunDB
}

func createTestAccount(t *testing.T, repo credentials.Accounts, username, email string) *credentials.Account {
	t.Helper()

	record, err := repo.Create(context.Background(), &credentials.Account{
		Name:         "Pepe Rone",
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$12$notarealhash",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, record.ID)
	return record
}

func TestAccountsRepoCreateDefaults(t *testing.T) {
	repo, _ := setupAccountsRepo(t)

	record := createTestAccount(t, repo, "pepe.rone", "pepe.rone@example.com")
	assert.Equal(t, []credentials.Role{credentials.RoleMember}, record.Roles)
}

func TestAccountsRepoUniqueConstraints(t *testing.T) {
	repo, _ := setupAccountsRepo(t)
	createTestAccount(t, repo, "pepe.rone", "pepe.rone@example.com")

	_, err := repo.Create(context.Background(), &credentials.Account{
		Name:         "Impostor",
		Username:     "impostor",
		Email:        "pepe.rone@example.com",
		PasswordHash: "$2a$12$notarealhash",
	})
	require.Error(t, err)
	assert.True(t, credentials.IsUniqueViolation(err))

	_, err = repo.Create(context.Background(), &credentials.Account{
		Name:         "Impostor",
		Username:     "pepe.rone",
		Email:        "impostor@example.com",
		PasswordHash: "$2a$12$notarealhash",
	})
	require.Error(t, err)
	assert.True(t, credentials.IsUniqueViolation(err))
}

func TestAccountsRepoGetByIdentifier(t *testing.T) {
	repo, _ := setupAccountsRepo(t)
	created := createTestAccount(t, repo, "pepe.rone", "pepe.rone@example.com")

	byUsername, err := repo.GetByIdentifier(context.Background(), "pepe.rone")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	byEmail, err := repo.GetByIdentifier(context.Background(), "pepe.rone@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	// identifiers are trimmed before lookup
	trimmed, err := repo.GetByIdentifier(context.Background(), "  pepe.rone  ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, trimmed.ID)

	_, err = repo.GetByIdentifier(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsRepoGetByIdentifierPrecedence(t *testing.T) {
	repo, _ := setupAccountsRepo(t)

	// one account's username equals another account's email
	usernameOwner := createTestAccount(t, repo, "shared@example.com", "owner@example.com")
	createTestAccount(t, repo, "someone.else", "shared@example.com")

	got, err := repo.GetByIdentifier(context.Background(), "shared@example.com")
	require.NoError(t, err)
	assert.Equal(t, usernameOwner.ID, got.ID)
}

func TestAccountsRepoRefreshTokenLifecycle(t *testing.T) {
	repo, _ := setupAccountsRepo(t)
	created := createTestAccount(t, repo, "pepe.rone", "pepe.rone@example.com")

	err := repo.StoreRefreshToken(context.Background(), created.ID, "refresh-token-1")
	require.NoError(t, err)

	found, err := repo.GetByRefreshToken(context.Background(), "refresh-token-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	// rotation replaces the stored value
	err = repo.StoreRefreshToken(context.Background(), created.ID, "refresh-token-2")
	require.NoError(t, err)

	_, err = repo.GetByRefreshToken(context.Background(), "refresh-token-1")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	// clearing by a stale value is a no-op
	cleared, err := repo.ClearRefreshToken(context.Background(), "refresh-token-1")
	require.NoError(t, err)
	assert.False(t, cleared)

	stillThere, err := repo.GetByRefreshToken(context.Background(), "refresh-token-2")
	require.NoError(t, err)
	assert.Equal(t, created.ID, stillThere.ID)

	// clearing by the live value revokes it
	cleared, err = repo.ClearRefreshToken(context.Background(), "refresh-token-2")
	require.NoError(t, err)
	assert.True(t, cleared)

	_, err = repo.GetByRefreshToken(context.Background(), "refresh-token-2")
	require.Error(t, err)
}

func TestAccountsRepoStoreRefreshTokenUnknownAccount(t *testing.T) {
	repo, _ := setupAccountsRepo(t)

	err := repo.StoreRefreshToken(context.Background(), uuid.New(), "refresh-token")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsRepoResetPassword(t *testing.T) {
	repo, _ := setupAccountsRepo(t)
	created := createTestAccount(t, repo, "pepe.rone", "pepe.rone@example.com")

	updated, err := repo.ResetPassword(context.Background(), "pepe.rone@example.com", "$2a$12$anotherfakehash")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "$2a$12$anotherfakehash", updated.PasswordHash)

	_, err = repo.ResetPassword(context.Background(), "nobody@example.com", "$2a$12$anotherfakehash")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestAccountsRepoSoftDeletedRowsAreInvisible(t *testing.T) {
	repo, db := setupAccountsRepo(t)
	created := createTestAccount(t, repo, "pepe.rone", "pepe.rone@example.com")

	err := repo.StoreRefreshToken(context.Background(), created.ID, "refresh-token")
	require.NoError(t, err)

	_, err = db.Exec("UPDATE accounts SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?", created.ID.String())
	require.NoError(t, err)

	// guarded updates skip soft deleted rows
	err = repo.StoreRefreshToken(context.Background(), created.ID, "new-token")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	cleared, err := repo.ClearRefreshToken(context.Background(), "refresh-token")
	require.NoError(t, err)
	assert.False(t, cleared)
}
