package infrastructure

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"video-linker/src/domain"
)

// CacheConfig параметры кэша результатов
type CacheConfig struct {
	// RedisURL пусто - только кэш в памяти
	RedisURL        string
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// TranscriptCache двухуровневый кэш готовых транскрипций:
// L1 в памяти процесса, L2 в Redis (переживает перезапуск).
type TranscriptCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil, если Redis недоступен
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	logger          *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64

	stop      chan struct{}
	closeOnce sync.Once
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

var _ domain.TranscriptCache = (*TranscriptCache)(nil)

// NewTranscriptCache создает кэш и запускает очистку устаревших записей.
// Недоступный Redis не считается ошибкой: кэш работает только в памяти.
func NewTranscriptCache(cfg CacheConfig, logger *slog.Logger) *TranscriptCache {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	c := &TranscriptCache{
		ttl:             cfg.TTL,
		maxEntries:      cfg.MaxEntries,
		cleanupInterval: cfg.CleanupInterval,
		logger:          logger,
		stop:            make(chan struct{}),
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("кэш: некорректный адрес Redis, L2 отключен", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("кэш: Redis недоступен, L2 отключен", slog.Any("error", err))
				rdb.Close()
			} else {
				c.rdb = rdb
				logger.Info("кэш: подключен Redis", slog.String("addr", opts.Addr))
			}
		}
	}

	logger.Info("кэш: инициализирован",
		slog.Duration("ttl", c.ttl),
		slog.Bool("redis", c.rdb != nil),
		slog.Int("max_entries", c.maxEntries))

	go c.cleanupLoop()
	return c
}

// CacheKey строит детерминированный ключ из частей
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("vl:%x", hash[:12])
}

// Get ищет запись в L1, затем в L2. Попадание в L2 заполняет L1.
func (c *TranscriptCache) Get(ctx context.Context, key string) (*domain.VideoTranscript, bool) {
	key = CacheKey(key)

	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			var out domain.VideoTranscript
			if json.Unmarshal(entry.data, &out) == nil {
				c.logger.Debug("кэш: L1 попадание", slog.String("key", key))
				c.hits.Add(1)
				return &out, true
			}
		}
		c.l1.Delete(key) // устарела или повреждена
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var out domain.VideoTranscript
			if json.Unmarshal(data, &out) == nil {
				c.logger.Debug("кэш: L2 попадание", slog.String("key", key))
				c.hits.Add(1)
				c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)})
				return &out, true
			}
		} else if err != redis.Nil {
			c.logger.Debug("кэш: ошибка чтения L2", slog.Any("error", err))
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set сохраняет запись в L1 и L2
func (c *TranscriptCache) Set(ctx context.Context, key string, value *domain.VideoTranscript) {
	if value == nil {
		return
	}
	key = CacheKey(key)

	data, err := json.Marshal(value)
	if err != nil {
		return
	}

	c.evictIfNeeded()
	c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Debug("кэш: ошибка записи L2", slog.Any("error", err))
		}
	}
}

// Stats возвращает счетчики попаданий и промахов
func (c *TranscriptCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close останавливает очистку и закрывает соединение с Redis
func (c *TranscriptCache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		if c.rdb != nil {
			err = c.rdb.Close()
		}
	})
	return err
}

// evictIfNeeded удаляет записи при превышении maxEntries:
// сначала устаревшие, затем самые старые
func (c *TranscriptCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			// Раньше истекает - раньше создана: expiresAt = createdAt + ttl
			if entry, ok := val.(*cacheEntry); ok && (oldestKey == nil || entry.expiresAt.Before(oldestAt)) {
				oldestKey = key
				oldestAt = entry.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			break
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

func (c *TranscriptCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.l1.Range(func(key, val any) bool {
				if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
					c.l1.Delete(key)
				}
				return true
			})
		}
	}
}
