package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/investplan/internal/wallet/domain"
	"github.com/wyfcoding/investplan/pkg/cache"
	"github.com/wyfcoding/investplan/pkg/db"
	"github.com/wyfcoding/investplan/pkg/logger"
)

const walletTTL = 5 * time.Minute

// WalletCache 钱包读缓存
type WalletCache struct {
	cache *cache.RedisCache
}

// NewWalletCache 创建钱包缓存
func NewWalletCache(c *cache.RedisCache) *WalletCache {
	return &WalletCache{cache: c}
}

func walletKey(userID string) string {
	return fmt.Sprintf("wallet:user:%s", userID)
}

// Get 返回 (nil, nil) 表示缓存未命中
func (c *WalletCache) Get(ctx context.Context, userID string) (*domain.Wallet, error) {
	var wallet domain.Wallet
	found, err := c.cache.GetJSON(ctx, walletKey(userID), &wallet)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &wallet, nil
}

func (c *WalletCache) Set(ctx context.Context, wallet *domain.Wallet) error {
	return c.cache.SetJSON(ctx, walletKey(wallet.UserID), wallet, walletTTL)
}

func (c *WalletCache) Invalidate(ctx context.Context, userID string) error {
	return c.cache.Delete(ctx, walletKey(userID))
}

// CompositeWalletRepository 先缓存后库的钱包仓储
// 写路径直达 MySQL，缓存在事务提交后失效，事务内的读也绕过缓存
type CompositeWalletRepository struct {
	db    domain.WalletRepository
	cache *WalletCache
}

// NewCompositeWalletRepository 组合 MySQL 仓储与 Redis 缓存
func NewCompositeWalletRepository(db domain.WalletRepository, c *WalletCache) *CompositeWalletRepository {
	return &CompositeWalletRepository{db: db, cache: c}
}

func (r *CompositeWalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	return r.db.Create(ctx, wallet)
}

func (r *CompositeWalletRepository) GetByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	if db.InTransaction(ctx) {
		return r.db.GetByUser(ctx, userID)
	}

	if cached, err := r.cache.Get(ctx, userID); err != nil {
		logger.Warn(ctx, "wallet cache read failed, falling back to db", "user_id", userID, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	wallet, err := r.db.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, wallet); err != nil {
		logger.Warn(ctx, "wallet cache write failed", "user_id", userID, "error", err)
	}
	return wallet, nil
}

func (r *CompositeWalletRepository) Save(ctx context.Context, wallet *domain.Wallet) error {
	if err := r.db.Save(ctx, wallet); err != nil {
		return err
	}
	// 提交前删除缓存会被并发读立刻用旧行回填，失效推迟到事务提交后
	userID := wallet.UserID
	db.OnCommit(ctx, func(cctx context.Context) {
		if err := r.cache.Invalidate(cctx, userID); err != nil {
			logger.Warn(cctx, "wallet cache invalidate failed", "user_id", userID, "error", err)
		}
	})
	return nil
}
