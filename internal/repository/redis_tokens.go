package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisTokenPrefix   = "rt:"
	redisAccountPrefix = "rt:account:"
)

// RedisTokenRepo keeps refresh tokens in redis with a key TTL matching the
// token expiry. Consuming a token uses GETDEL so exactly one caller observes
// the stored value.
type RedisTokenRepo struct {
	rdb *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisTokenRepo(cfg RedisConfig) *RedisTokenRepo {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisTokenRepo{rdb: rdb}
}

type redisTokenEntry struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *RedisTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	val, err := json.Marshal(redisTokenEntry{
		ID:        token.ID,
		AccountID: token.AccountID,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("serialize refresh token: %w", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}

	ok, err := r.rdb.SetNX(ctx, redisTokenPrefix+token.TokenHash, val, ttl).Result()
	if err != nil {
		return fmt.Errorf("store refresh token in redis: %w", err)
	}
	if !ok {
		return fmt.Errorf("create refresh token: %w", ErrDuplicate)
	}

	setKey := redisAccountPrefix + token.AccountID.String()
	pipe := r.rdb.TxPipeline()
	pipe.SAdd(ctx, setKey, token.TokenHash)
	pipe.ExpireGT(ctx, setKey, ttl)
	pipe.ExpireNX(ctx, setKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index refresh token by account: %w", err)
	}
	return nil
}

func (r *RedisTokenRepo) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	val, err := r.rdb.Get(ctx, redisTokenPrefix+hash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("retrieve refresh token from redis: %w", err)
	}
	return decodeToken(hash, val)
}

func (r *RedisTokenRepo) DeleteByHash(ctx context.Context, hash string) (bool, error) {
	val, err := r.rdb.GetDel(ctx, redisTokenPrefix+hash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("delete refresh token from redis: %w", err)
	}

	if token, err := decodeToken(hash, val); err == nil {
		if err := r.rdb.SRem(ctx, redisAccountPrefix+token.AccountID.String(), hash).Err(); err != nil {
			slog.Warn("failed to untrack refresh token", "account_id", token.AccountID, "error", err)
		}
	}
	return true, nil
}

func (r *RedisTokenRepo) DeleteByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	setKey := redisAccountPrefix + accountID.String()
	hashes, err := r.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list account refresh tokens: %w", err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, redisTokenPrefix+h)
	}
	n, err := r.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete account refresh tokens: %w", err)
	}
	if err := r.rdb.Del(ctx, setKey).Err(); err != nil {
		slog.Warn("failed to drop refresh token index", "account_id", accountID, "error", err)
	}
	return n, nil
}

// DeleteExpired is a no-op; redis expires keys on its own.
func (r *RedisTokenRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisTokenRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisTokenRepo) Close() error {
	return r.rdb.Close()
}

func decodeToken(hash string, val []byte) (*models.RefreshToken, error) {
	var e redisTokenEntry
	if err := json.Unmarshal(val, &e); err != nil {
		return nil, fmt.Errorf("deserialize refresh token: %w", err)
	}
	return &models.RefreshToken{
		ID:        e.ID,
		AccountID: e.AccountID,
		TokenHash: hash,
		ExpiresAt: e.ExpiresAt,
		CreatedAt: e.CreatedAt,
	}, nil
}
