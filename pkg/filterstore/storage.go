package filterstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("key not found")

// Storage is durable key/value storage on the client side.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, data []byte) error
}

// NullStorage accepts every write and never has anything stored.
type NullStorage struct{}

func (NullStorage) Get(string) ([]byte, error) { return nil, ErrNotFound }
func (NullStorage) Set(string, []byte) error   { return nil }

type MemoryStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(d), nil
}

func (m *MemoryStorage) Set(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = bytes.Clone(data)
	return nil
}

// FileStorage keeps one file per key, replaced atomically on write.
type FileStorage struct {
	Dir string
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.Dir, fileNameReplacer.Replace(key)+".json")
}

func (f *FileStorage) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *FileStorage) Set(key string, data []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(f.path(key), bytes.NewReader(data))
}

// RedisStorage namespaces keys by session, for clients that keep their
// preferences server side.
type RedisStorage struct {
	Client     *redis.Client
	Session    string
	Expiration time.Duration
	Timeout    time.Duration
}

func (r *RedisStorage) key(key string) string {
	return fmt.Sprintf("session:%s:%s", r.Session, key)
}

func (r *RedisStorage) ctx() (context.Context, context.CancelFunc) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

func (r *RedisStorage) Get(key string) ([]byte, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	data, err := r.Client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *RedisStorage) Set(key string, data []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.Client.Set(ctx, r.key(key), data, r.Expiration).Err()
}

const probeKey = "__probe"

// Probe checks once that the storage can round trip a value. Storage that
// cannot is replaced by NullStorage so callers never branch on availability.
func Probe(s Storage) Storage {
	if s == nil {
		return NullStorage{}
	}
	payload := []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
	if err := s.Set(probeKey, payload); err != nil {
		log.Printf("filter storage unavailable, keeping filters in memory: %v", err)
		return NullStorage{}
	}
	got, err := s.Get(probeKey)
	if err != nil || !bytes.Equal(got, payload) {
		log.Printf("filter storage does not read back, keeping filters in memory: %v", err)
		return NullStorage{}
	}
	return s
}
