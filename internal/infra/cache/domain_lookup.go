package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	repo "app/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const domainKeyPrefix = "tenant_domain:"

// キャッシュに載せる形
type cachedDomain struct {
	TenantID int64 `json:"tenant_id"`
	IsActive bool  `json:"is_active"`
}

// Redisを前段に挟んだTenantDomainLookup。
// ホスト名解決は毎リクエスト呼ばれるホットパスなのでTTL付きでキャッシュする。
// 追加・無効化はTTLぶん遅れて見える（許容済みの stale）。
type cachedDomainLookup struct {
	client *redis.Client
	inner  repo.TenantDomainLookup
	ttl    time.Duration
	log    *zap.Logger
}

// DI。clientがnilならinnerをそのまま返す。
func NewCachedDomainLookup(client *redis.Client, inner repo.TenantDomainLookup, ttl time.Duration, log *zap.Logger) repo.TenantDomainLookup {
	if client == nil {
		return inner
	}
	return &cachedDomainLookup{
		client: client,
		inner:  inner,
		ttl:    ttl,
		log:    log,
	}
}

func (l *cachedDomainLookup) Resolve(ctx context.Context, hostname string) (*repo.ResolvedTenant, error) {
	key := domainKeyPrefix + hostname

	//キャッシュヒットならDBに行かない
	raw, err := l.client.Get(ctx, key).Result()
	if err == nil {
		var c cachedDomain
		if jsonErr := json.Unmarshal([]byte(raw), &c); jsonErr == nil {
			return &repo.ResolvedTenant{TenantID: c.TenantID, IsActive: c.IsActive}, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		//Redis障害は解決自体を止めない
		l.log.Warn("domain cache read failed", zap.String("hostname", hostname), zap.Error(err))
	}

	resolved, err := l.inner.Resolve(ctx, hostname)
	if err != nil {
		return nil, err
	}

	buf, err := json.Marshal(cachedDomain{TenantID: resolved.TenantID, IsActive: resolved.IsActive})
	if err == nil {
		if setErr := l.client.Set(ctx, key, buf, l.ttl).Err(); setErr != nil {
			l.log.Warn("domain cache write failed", zap.String("hostname", hostname), zap.Error(setErr))
		}
	}

	return resolved, nil
}

// InvalidateDomain はドメイン変更時にキャッシュを消す。
func InvalidateDomain(ctx context.Context, client *redis.Client, hostname string) error {
	if client == nil {
		return nil
	}
	return client.Del(ctx, domainKeyPrefix+hostname).Err()
}

// usecase側にredisの型を見せないための薄いラッパー。
// clientがnilでもno-opで動く（キャッシュなし構成）。
type DomainInvalidator struct {
	client *redis.Client
}

func NewDomainInvalidator(client *redis.Client) *DomainInvalidator {
	return &DomainInvalidator{client: client}
}

func (i *DomainInvalidator) InvalidateDomain(ctx context.Context, hostname string) error {
	return InvalidateDomain(ctx, i.client, hostname)
}
