// Package cache 以Redis有序集合快取商品列表，score為商品ID，member為商品JSON。
package cache

import (
	"OnlineStore/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const productsKey = "products"

// ErrMiss 表示快取為空，需要從資料庫重建
var ErrMiss = errors.New("cache: product list miss")

type ProductCache interface {
	Range(ctx context.Context, offset, limit int) ([]models.Product, int64, error)
	Put(ctx context.Context, products ...models.Product) error
	Remove(ctx context.Context, productIDs ...uint) error
	Rebuild(ctx context.Context, products []models.Product) error
}

type RedisProductCache struct {
	rdb *redis.Client
	key string
}

func NewRedisProductCache(rdb *redis.Client) *RedisProductCache {
	return &RedisProductCache{rdb: rdb, key: productsKey}
}

// Range 依商品ID排序取出 [offset, offset+limit) 並回傳快取中的商品總數
func (c *RedisProductCache) Range(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	total, err := c.rdb.ZCard(ctx, c.key).Result()
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return nil, 0, ErrMiss
	}

	members, err := c.rdb.ZRange(ctx, c.key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, err
	}

	products := make([]models.Product, 0, len(members))
	for _, member := range members {
		var product models.Product
		if err := json.Unmarshal([]byte(member), &product); err != nil {
			return nil, 0, fmt.Errorf("無法反序列化商品資料: %w", err)
		}
		products = append(products, product)
	}
	return products, total, nil
}

// Put 以相同score覆蓋既有商品，避免同一商品留下舊的JSON。
// 快取尚未建立時不寫入，留待下次讀取時整份重建
func (c *RedisProductCache) Put(ctx context.Context, products ...models.Product) error {
	if len(products) == 0 {
		return nil
	}
	exists, err := c.rdb.Exists(ctx, c.key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return nil
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, product := range products {
			productJSON, err := json.Marshal(product)
			if err != nil {
				return fmt.Errorf("無法序列化商品資料: %w", err)
			}
			score := strconv.FormatUint(uint64(product.ID), 10)
			pipe.ZRemRangeByScore(ctx, c.key, score, score)
			pipe.ZAdd(ctx, c.key, redis.Z{
				Score:  float64(product.ID),
				Member: productJSON,
			})
		}
		return nil
	})
	return err
}

func (c *RedisProductCache) Remove(ctx context.Context, productIDs ...uint) error {
	if len(productIDs) == 0 {
		return nil
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range productIDs {
			score := strconv.FormatUint(uint64(id), 10)
			pipe.ZRemRangeByScore(ctx, c.key, score, score)
		}
		return nil
	})
	return err
}

// Rebuild 清空後重新寫入整份商品列表
func (c *RedisProductCache) Rebuild(ctx context.Context, products []models.Product) error {
	members := make([]redis.Z, 0, len(products))
	for _, product := range products {
		productJSON, err := json.Marshal(product)
		if err != nil {
			return fmt.Errorf("無法序列化商品資料: %w", err)
		}
		members = append(members, redis.Z{Score: float64(product.ID), Member: productJSON})
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, c.key, members...)
		}
		return nil
	})
	return err
}
