package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The postgres column defaults (gen_random_uuid) do not parse on sqlite, so
// the tables are declared by hand with the same unique indexes.
var sqliteSchema = []string{
	`CREATE TABLE accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		first_name TEXT,
		last_name TEXT,
		avatar TEXT,
		password_hash TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX idx_accounts_email ON accounts (email)`,
	`CREATE TABLE social_identities (
		id TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		created_at DATETIME
	)`,
	`CREATE UNIQUE INDEX idx_social_provider_subject ON social_identities (provider, provider_id)`,
	`CREATE UNIQUE INDEX idx_social_account_provider ON social_identities (provider, account_id)`,
	`CREATE TABLE refresh_tokens (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		created_at DATETIME
	)`,
	`CREATE TABLE system_logs (
		id TEXT PRIMARY KEY,
		"timestamp" DATETIME NOT NULL,
		level TEXT NOT NULL,
		message TEXT,
		op TEXT,
		provider TEXT,
		request_id TEXT,
		account_id TEXT,
		error TEXT,
		latency_ms INTEGER,
		extra TEXT DEFAULT '{}',
		created_at DATETIME
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	for _, stmt := range sqliteSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newGormAccount(email string) *models.Account {
	return &models.Account{ID: uuid.New(), Email: email, Role: models.RoleUser, Status: models.StatusActive}
}

func TestAccountRepo_DuplicateEmail(t *testing.T) {
	repo := NewAccountRepo(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newGormAccount("Dup@X.com")))

	err := repo.Create(ctx, newGormAccount("dup@x.com "))
	require.ErrorIs(t, err, ErrDuplicate)

	found, err := repo.FindByEmail(ctx, " DUP@x.com")
	require.NoError(t, err)
	assert.Equal(t, "dup@x.com", found.Email)

	_, err = repo.FindByEmail(ctx, "missing@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRepo_CreateWithIdentityRollsBack(t *testing.T) {
	repo := NewAccountRepo(newTestDB(t))
	ctx := context.Background()

	first := newGormAccount("first@x.com")
	require.NoError(t, repo.CreateWithIdentity(ctx, first, &models.SocialIdentity{
		ID: uuid.New(), Provider: models.ProviderGoogle, ProviderID: "g-1",
	}))

	found, err := repo.FindBySocialIdentity(ctx, models.ProviderGoogle, "g-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	err = repo.CreateWithIdentity(ctx, newGormAccount("second@x.com"), &models.SocialIdentity{
		ID: uuid.New(), Provider: models.ProviderGoogle, ProviderID: "g-1",
	})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.FindByEmail(ctx, "second@x.com")
	assert.ErrorIs(t, err, ErrNotFound, "account insert must roll back with the identity")
}

func TestAccountRepo_OneIdentityPerProvider(t *testing.T) {
	repo := NewAccountRepo(newTestDB(t))
	ctx := context.Background()

	account := newGormAccount("a@x.com")
	require.NoError(t, repo.Create(ctx, account))

	require.NoError(t, repo.LinkIdentity(ctx, &models.SocialIdentity{
		ID: uuid.New(), AccountID: account.ID, Provider: models.ProviderFacebook, ProviderID: "fb-1",
	}))
	err := repo.LinkIdentity(ctx, &models.SocialIdentity{
		ID: uuid.New(), AccountID: account.ID, Provider: models.ProviderFacebook, ProviderID: "fb-2",
	})
	require.ErrorIs(t, err, ErrDuplicate)

	identity, err := repo.FindIdentity(ctx, account.ID, models.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, "fb-1", identity.ProviderID)

	_, err = repo.FindIdentity(ctx, account.ID, models.ProviderApple)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepo_DeleteByHashIsSingleUse(t *testing.T) {
	repo := NewTokenRepo(newTestDB(t))
	ctx := context.Background()
	hash := uuid.NewString()

	require.NoError(t, repo.Create(ctx, &models.RefreshToken{
		ID: uuid.New(), AccountID: uuid.New(), TokenHash: hash,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}))
	err := repo.Create(ctx, &models.RefreshToken{
		ID: uuid.New(), AccountID: uuid.New(), TokenHash: hash,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	})
	require.ErrorIs(t, err, ErrDuplicate)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := repo.DeleteByHash(ctx, hash); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	ok, err := repo.DeleteByHash(ctx, hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.FindByHash(ctx, hash)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepo_DeleteExpiredAndByAccount(t *testing.T) {
	repo := NewTokenRepo(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	accountID := uuid.New()

	for _, exp := range []time.Duration{-2 * time.Hour, -time.Hour, time.Hour} {
		require.NoError(t, repo.Create(ctx, &models.RefreshToken{
			ID: uuid.New(), AccountID: accountID, TokenHash: uuid.NewString(), ExpiresAt: now.Add(exp),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.RefreshToken{
		ID: uuid.New(), AccountID: uuid.New(), TokenHash: uuid.NewString(), ExpiresAt: now.Add(time.Hour),
	}))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogRepo_WriteAndPurge(t *testing.T) {
	repo := NewLogRepo(newTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.WriteLogs(ctx, nil))
	require.NoError(t, repo.WriteLogs(ctx, []models.SystemLog{
		{ID: uuid.New(), Timestamp: now.Add(-48 * time.Hour), Level: "ERROR", Message: "old"},
		{ID: uuid.New(), Timestamp: now.Add(-time.Minute), Level: "ERROR", Message: "recent"},
	}))

	n, err := repo.Purge(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Purge(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}
