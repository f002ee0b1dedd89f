// Package storage реализует клиент внешнего хранилища записей на Redis.
// Записи о подписчиках и очередь удаления лежат отдельными ключами с
// JSON-значениями; каждая операция — одиночный сетевой вызов без
// внутренних ретраев: неудача означает "ничего не изменилось", и
// вызывающий цикл повторит попытку на следующем тике.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/streamtap/subscription-keeper/internal/config"
	"github.com/streamtap/subscription-keeper/internal/models"
)

const (
	userPrefix    = "users:"
	removalPrefix = "removalqueue:"

	scanBatch = 100
)

// Storage инкапсулирует подключение к Redis.
type Storage struct {
	Db *redis.Client
}

// New создаёт подключение к Redis и проверяет его доступность.
func New(ctx context.Context, cfg config.RedisConnection) (*Storage, error) {
	const op = "storage.New"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		Username:     cfg.User,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{Db: db}, nil
}

// GetUser возвращает запись о подписчике или nil, если её нет.
func (s *Storage) GetUser(ctx context.Context, id string) (*models.RawUser, error) {
	const op = "storage.GetUser"
	val, err := s.Db.Get(ctx, userPrefix+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var raw models.RawUser
	if err := json.Unmarshal([]byte(val), &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &raw, nil
}

// SaveUser записывает запись о подписчике целиком (последняя запись побеждает).
func (s *Storage) SaveUser(ctx context.Context, id string, raw models.RawUser) error {
	const op = "storage.SaveUser"
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Db.Set(ctx, userPrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет запись о подписчике. Возвращает false, если записи
// уже не было: для обработчика очереди удаления это тоже успех.
func (s *Storage) DeleteUser(ctx context.Context, id string) (bool, error) {
	const op = "storage.DeleteUser"
	n, err := s.Db.Del(ctx, userPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// ListUsers возвращает все записи о подписчиках. Значение, которое не
// удалось разобрать как JSON, попадает в результат пустым: валидация
// на стороне вызывающего отбракует его как повреждённую запись, не
// прерывая обход остальных.
func (s *Storage) ListUsers(ctx context.Context) (map[string]models.RawUser, error) {
	const op = "storage.ListUsers"
	keys, err := s.scanKeys(ctx, userPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := make(map[string]models.RawUser, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	vals, err := s.Db.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i, key := range keys {
		id := key[len(userPrefix):]
		str, ok := vals[i].(string)
		if !ok {
			result[id] = models.RawUser{}
			continue
		}
		var raw models.RawUser
		if err := json.Unmarshal([]byte(str), &raw); err != nil {
			result[id] = models.RawUser{}
			continue
		}
		result[id] = raw
	}
	return result, nil
}

// CountUsers возвращает количество записей о подписчиках.
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	const op = "storage.CountUsers"
	keys, err := s.scanKeys(ctx, userPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return len(keys), nil
}

// EnqueueRemoval ставит пользователя в очередь удаления. Повторная
// постановка — no-op: первый queued_at сохраняется, чтобы продление
// льготного периода не происходило само собой.
func (s *Storage) EnqueueRemoval(ctx context.Context, id string, raw models.RawRemovalEntry) error {
	const op = "storage.EnqueueRemoval"
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.Db.SetNX(ctx, removalPrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListRemovalQueue возвращает всю очередь удаления. Нечитаемые значения
// попадают в результат пустыми, как и в ListUsers.
func (s *Storage) ListRemovalQueue(ctx context.Context) (map[string]models.RawRemovalEntry, error) {
	const op = "storage.ListRemovalQueue"
	keys, err := s.scanKeys(ctx, removalPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result := make(map[string]models.RawRemovalEntry, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	vals, err := s.Db.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i, key := range keys {
		id := key[len(removalPrefix):]
		str, ok := vals[i].(string)
		if !ok {
			result[id] = models.RawRemovalEntry{}
			continue
		}
		var raw models.RawRemovalEntry
		if err := json.Unmarshal([]byte(str), &raw); err != nil {
			result[id] = models.RawRemovalEntry{}
			continue
		}
		result[id] = raw
	}
	return result, nil
}

// DequeueRemoval убирает пользователя из очереди удаления.
func (s *Storage) DequeueRemoval(ctx context.Context, id string) error {
	const op = "storage.DequeueRemoval"
	if err := s.Db.Del(ctx, removalPrefix+id).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) scanKeys(ctx context.Context, match string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.Db.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
