// Package cache предоставляет недолговечный кэш результатов оценки.
//
// Кэш носит справочный характер: его потеря или недоступность снижает
// только скорость, но не корректность. Любая ошибка операций кэша
// превращается в промах и никогда не доходит до вызывающего кода.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const opTimeout = 2 * time.Second

// Store описывает контракт кэша результатов.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Close() error
}

// RedisStore — реализация Store поверх Redis.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore создаёт клиент Redis по указанному URI и проверяет соединение.
// Клиент создаётся один раз при старте процесса и закрывается при остановке.
func NewRedisStore(uri string, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = opTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client, logger: logger}, nil
}

// Get возвращает значение по ключу. Любая ошибка трактуется как промах.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Set сохраняет значение с ограниченным временем жизни. Ошибки не поднимаются наверх.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Close закрывает соединение с Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Noop — заглушка кэша, используемая когда Redis не сконфигурирован.
// Все чтения — промахи, все записи — неуспешны.
type Noop struct{}

// Get всегда возвращает промах.
func (Noop) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }

// Set всегда сообщает о неуспехе записи.
func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool { return false }

// Close не делает ничего.
func (Noop) Close() error { return nil }
