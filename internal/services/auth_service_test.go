package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/providers"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeProvider struct {
	provider models.Provider
	profiles map[string]providers.Profile
}

func (f *fakeProvider) Provider() models.Provider { return f.provider }

func (f *fakeProvider) VerifyToken(_ context.Context, token string) (*providers.Profile, error) {
	p, ok := f.profiles[token]
	if !ok {
		return nil, errors.New("token rejected by provider")
	}
	return &p, nil
}

type testEnv struct {
	svc      *AuthService
	accounts *repository.MemoryAccountRepo
	tokens   *repository.MemoryTokenRepo
	google   *fakeProvider
	facebook *fakeProvider
}

func testConfig() AuthConfig {
	return AuthConfig{
		Secret:       []byte("0123456789abcdef0123456789abcdef"),
		Issuer:       "identity-test",
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   7 * 24 * time.Hour,
		BcryptCost:   bcrypt.MinCost,
		StoreTimeout: time.Second,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	accounts := repository.NewMemoryAccountRepo()
	tokens := repository.NewMemoryTokenRepo()
	google := &fakeProvider{provider: models.ProviderGoogle, profiles: map[string]providers.Profile{}}
	facebook := &fakeProvider{provider: models.ProviderFacebook, profiles: map[string]providers.Profile{}}
	gateway := providers.NewGateway(time.Second, google, facebook)

	return &testEnv{
		svc:      NewAuthService(testConfig(), accounts, tokens, gateway),
		accounts: accounts,
		tokens:   tokens,
		google:   google,
		facebook: facebook,
	}
}

func register(t *testing.T, env *testEnv, email, password string) *AuthResult {
	t.Helper()
	res, err := env.svc.Register(context.Background(), RegisterInput{
		Email: email, Password: password, FirstName: "A", LastName: "B",
	})
	require.NoError(t, err)
	return res
}

func TestAuthService_ExampleScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg := register(t, env, "a@x.com", "Passw0rd")
	require.NotEmpty(t, reg.Tokens.AccessToken)
	require.NotEmpty(t, reg.Tokens.RefreshToken)
	assert.True(t, reg.Created)

	login, err := env.svc.Login(ctx, "a@x.com", "Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, login.Account.ID)

	_, err = env.svc.Login(ctx, "a@x.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	env.google.profiles["google-token"] = providers.Profile{
		ProviderID: "g-1", Email: "a@x.com", FirstName: "A", LastName: "B",
	}
	social, err := env.svc.SocialLogin(ctx, models.ProviderGoogle, "google-token")
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, social.Account.ID)
	assert.False(t, social.Created)
	accounts, identities := env.accounts.Count()
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, identities)

	refreshed, err := env.svc.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	_, err = env.svc.Refresh(ctx, login.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Register_DuplicateEmailCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "Mixed@Example.com", "Passw0rd!")

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Email: "mixed@EXAMPLE.com", Password: "another-pass",
	})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestAuthService_Register_PasswordOverBcryptLimit(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Email: "long@x.com", Password: strings.Repeat("a", 80),
	})
	require.ErrorIs(t, err, ErrPasswordTooLong)
	assert.NotErrorIs(t, err, ErrInternal)
	assert.Equal(t, "invalid_input", Outcome(err))

	accounts, _ := env.accounts.Count()
	assert.Zero(t, accounts)

	register(t, env, "edge@x.com", strings.Repeat("b", 72))
}

func TestAuthService_Register_ConcurrentSameEmail(t *testing.T) {
	env := newTestEnv(t)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.svc.Register(context.Background(), RegisterInput{
				Email: "race@example.com", Password: "Passw0rd",
			})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrAlreadyExists)
	}
	assert.Equal(t, 1, ok)
	accounts, _ := env.accounts.Count()
	assert.Equal(t, 1, accounts)
}

func TestAuthService_Register_StoresHashNotPassword(t *testing.T) {
	env := newTestEnv(t)
	res := register(t, env, "hash@example.com", "Passw0rd")

	stored, err := env.accounts.FindByID(context.Background(), res.Account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordHash)
	assert.NotEqual(t, "Passw0rd", *stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("Passw0rd")))
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	register(t, env, "known@example.com", "Passw0rd")

	env.google.profiles["g"] = providers.Profile{ProviderID: "g-9", Email: "social@example.com"}
	_, err := env.svc.SocialLogin(ctx, models.ProviderGoogle, "g")
	require.NoError(t, err)

	_, errWrong := env.svc.Login(ctx, "known@example.com", "nope")
	_, errMissing := env.svc.Login(ctx, "nobody@example.com", "Passw0rd")
	_, errNoPassword := env.svc.Login(ctx, "social@example.com", "")

	for _, err := range []error{errWrong, errMissing, errNoPassword} {
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
	}
}

func TestAuthService_SocialLogin_ExistingIdentityReturnsSameAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.facebook.profiles["fb"] = providers.Profile{ProviderID: "fb-1", Email: "fb@example.com", FirstName: "F"}

	first, err := env.svc.SocialLogin(ctx, models.ProviderFacebook, "fb")
	require.NoError(t, err)
	assert.True(t, first.Created)

	env.facebook.profiles["fb"] = providers.Profile{ProviderID: "fb-1", Email: "changed@example.com"}
	second, err := env.svc.SocialLogin(ctx, models.ProviderFacebook, "fb")
	require.NoError(t, err)
	assert.Equal(t, first.Account.ID, second.Account.ID)
	assert.False(t, second.Created)

	accounts, identities := env.accounts.Count()
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, identities)
}

func TestAuthService_SocialLogin_NewAccountHasNoPassword(t *testing.T) {
	env := newTestEnv(t)
	env.google.profiles["g"] = providers.Profile{ProviderID: "g-2", Email: "New@Example.com", FirstName: "N"}

	res, err := env.svc.SocialLogin(context.Background(), models.ProviderGoogle, "g")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "new@example.com", res.Account.Email)
	assert.False(t, res.Account.HasPassword())
	assert.Equal(t, models.RoleUser, res.Account.Role)
}

func TestAuthService_SocialLogin_ConcurrentNewIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.google.profiles["g"] = providers.Profile{ProviderID: "g-race", Email: "race@example.com"}

	const n = 10
	ids := make([]uuid.UUID, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.svc.SocialLogin(context.Background(), models.ProviderGoogle, "g")
			errs[i] = err
			if err == nil {
				ids[i] = res.Account.ID
			}
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	accounts, identities := env.accounts.Count()
	assert.Equal(t, 1, accounts)
	assert.Equal(t, 1, identities)
}

func TestAuthService_SocialLogin_ProviderConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	register(t, env, "two@example.com", "Passw0rd")

	env.google.profiles["g1"] = providers.Profile{ProviderID: "g-a", Email: "two@example.com"}
	env.google.profiles["g2"] = providers.Profile{ProviderID: "g-b", Email: "two@example.com"}

	_, err := env.svc.SocialLogin(ctx, models.ProviderGoogle, "g1")
	require.NoError(t, err)

	_, err = env.svc.SocialLogin(ctx, models.ProviderGoogle, "g2")
	require.ErrorIs(t, err, ErrProviderConflict)

	_, identities := env.accounts.Count()
	assert.Equal(t, 1, identities)
}

func TestAuthService_SocialLogin_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.SocialLogin(ctx, models.ProviderGoogle, "unknown-token")
	require.ErrorIs(t, err, ErrInvalidProviderToken)

	_, err = env.svc.SocialLogin(ctx, models.ProviderInstagram, "anything")
	require.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestAuthService_Refresh_SingleUseUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	reg := register(t, env, "conc@example.com", "Passw0rd")

	const n = 12
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.svc.Refresh(context.Background(), reg.Tokens.RefreshToken)
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, 1, ok)
}

func TestAuthService_Refresh_ExpiredTokenIsRemoved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := register(t, env, "exp@example.com", "Passw0rd")

	env.svc.tokens.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	_, err := env.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 0, env.tokens.Len())

	_, err = env.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Refresh_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Refresh(context.Background(), "never-issued")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := register(t, env, "out@example.com", "Passw0rd")

	require.NoError(t, env.svc.Logout(ctx, reg.Tokens.RefreshToken))
	require.NoError(t, env.svc.Logout(ctx, reg.Tokens.RefreshToken))
	require.NoError(t, env.svc.Logout(ctx, "garbage"))

	_, err := env.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RevokeAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := register(t, env, "all@example.com", "Passw0rd")
	_, err := env.svc.Login(ctx, "all@example.com", "Passw0rd")
	require.NoError(t, err)
	other := register(t, env, "other@example.com", "Passw0rd")

	n, err := env.svc.RevokeAll(ctx, reg.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = env.svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = env.svc.Refresh(ctx, other.Tokens.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_ValidateToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reg := register(t, env, "val@example.com", "Passw0rd")

	claims, err := env.svc.ValidateToken(ctx, reg.Tokens.AccessToken)
	require.NoError(t, err)
	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, reg.Account.ID, id)
	assert.Equal(t, "val@example.com", claims.Email)
	assert.Equal(t, models.RoleUser, claims.Role)

	t.Run("tampered", func(t *testing.T) {
		_, err := env.svc.ValidateToken(ctx, reg.Tokens.AccessToken+"x")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := env.svc.ValidateToken(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   reg.Account.ID.String(),
				Issuer:    "identity-test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		})
		raw, err := tok.SignedString([]byte("another-secret-another-secret-xx"))
		require.NoError(t, err)
		_, err = env.svc.ValidateToken(ctx, raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   reg.Account.ID.String(),
				Issuer:    "identity-test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		})
		raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = env.svc.ValidateToken(ctx, raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		env.svc.tokens.now = func() time.Time { return time.Now().Add(time.Hour) }
		defer func() { env.svc.tokens.now = time.Now }()
		_, err := env.svc.ValidateToken(ctx, reg.Tokens.AccessToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenManager_Sweep(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "s1@example.com", "Passw0rd")
	register(t, env, "s2@example.com", "Passw0rd")

	n, err := env.svc.Tokens().Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	env.svc.tokens.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	n, err = env.svc.Tokens().Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 0, env.tokens.Len())
}

func TestTokenManager_RefreshTokenEntropy(t *testing.T) {
	raw, err := newRefreshToken()
	require.NoError(t, err)
	assert.Len(t, raw, 43)
	assert.Len(t, HashToken(raw), 64)
}

func TestCredentials_VerifyPassword(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)
	hash, err := c.Hash("Passw0rd")
	require.NoError(t, err)

	assert.True(t, c.VerifyPassword("Passw0rd", &hash))
	assert.False(t, c.VerifyPassword("passw0rd", &hash))
	assert.False(t, c.VerifyPassword("Passw0rd", nil))
	empty := ""
	assert.False(t, c.VerifyPassword("", &empty))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "expired", Outcome(ErrTokenExpired))
	assert.Equal(t, "invalid_token", Outcome(ErrInvalidToken))
	assert.Equal(t, "internal", Outcome(internalErr("x", errors.New("boom"))))
	assert.True(t, errors.Is(internalErr("x", repository.ErrNotFound), repository.ErrNotFound))
}
