package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) string
}

type chatLogRepository struct {
	store BlobStore

	// keyLocks serializes read-modify-write cycles per inferId, so concurrent
	// image patches against one log cannot lose each other's update.
	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

func NewChatLogRepository(store BlobStore) *chatLogRepository {
	return &chatLogRepository{
		store:    store,
		keyLocks: make(map[string]*sync.Mutex),
	}
}

func chatLogKey(inferID string) string {
	return fmt.Sprintf("chat-%s.json", inferID)
}

func (r *chatLogRepository) Save(ctx context.Context, log *domain.ChatLog) error {
	key := chatLogKey(log.InferID)
	log.SelfLink = r.store.PublicURL(key)

	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshaling chat log: %w", err)
	}

	if err := r.store.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("storing chat log %s: %w", log.InferID, err)
	}
	return nil
}

func (r *chatLogRepository) Get(ctx context.Context, inferID string) (*domain.ChatLog, error) {
	data, err := r.store.Get(ctx, chatLogKey(inferID))
	if err != nil {
		return nil, fmt.Errorf("fetching chat log %s: %w", inferID, err)
	}

	var log domain.ChatLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("unmarshaling chat log %s: %w", inferID, err)
	}
	return &log, nil
}

// Update runs fn over the persisted log and writes the result back, holding
// the per-inferId lock for the whole read-modify-write cycle.
func (r *chatLogRepository) Update(ctx context.Context, inferID string, fn func(*domain.ChatLog) error) error {
	lock := r.lockFor(inferID)
	lock.Lock()
	defer lock.Unlock()

	log, err := r.Get(ctx, inferID)
	if err != nil {
		return err
	}

	if err := fn(log); err != nil {
		return err
	}

	return r.Save(ctx, log)
}

func (r *chatLogRepository) lockFor(inferID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.keyLocks[inferID]
	if !ok {
		lock = &sync.Mutex{}
		r.keyLocks[inferID] = lock
	}
	return lock
}
