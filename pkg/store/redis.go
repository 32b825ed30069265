package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mahaj/carechat/pkg/errs"
	"github.com/mahaj/carechat/pkg/model"
)

// Redis keeps push tokens and presence records.
// Keys used:
// - <prefix>:userTokens:<userID> -> hash {token}
// - <prefix>:userStatus:<userID> -> json model.UserStatus
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) tokenKey(userID string) string { return fmt.Sprintf("%s:userTokens:%s", r.prefix, userID) }
func (r *Redis) statusKey(userID string) string { return fmt.Sprintf("%s:userStatus:%s", r.prefix, userID) }

func (r *Redis) GetToken(ctx context.Context, userID string) (string, error) {
	token, err := r.client.HGet(ctx, r.tokenKey(userID), "token").Result()
	if errors.Is(err, redis.Nil) {
		return "", errs.ErrNotFound
	}
	return token, err
}

func (r *Redis) SetToken(ctx context.Context, userID, token string) error {
	return r.client.HSet(ctx, r.tokenKey(userID), "token", token).Err()
}

func (r *Redis) GetStatus(ctx context.Context, userID string) (*model.UserStatus, error) {
	raw, err := r.client.Get(ctx, r.statusKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeStatus(raw)
}

func (r *Redis) SetStatus(ctx context.Context, userID string, st model.UserStatus) (*model.UserStatus, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	prev, err := r.client.GetSet(ctx, r.statusKey(userID), b).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStatus(prev)
}

func (r *Redis) ClearStatus(ctx context.Context, userID string) (*model.UserStatus, error) {
	prev, err := r.client.GetDel(ctx, r.statusKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStatus(prev)
}

func decodeStatus(raw []byte) (*model.UserStatus, error) {
	var st model.UserStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}
