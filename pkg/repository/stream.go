package repository

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dskvich/ai-chat-server/pkg/domain"
)

// ChatArgs are the submitted arguments of one chat turn, parked between the
// submission call and the stream open. The push channel cannot carry a request
// body, so submission and streaming are a two-phase handshake.
type ChatArgs struct {
	Messages []domain.Message
	Options  domain.GenerationOptions
	UserID   string
}

type streamEntry struct {
	args      ChatArgs
	createdAt time.Time
}

type streamRepository struct {
	mu      sync.Mutex
	entries map[string]streamEntry
	ttl     time.Duration
}

func NewStreamRepository(ttl time.Duration) *streamRepository {
	return &streamRepository{
		entries: make(map[string]streamEntry),
		ttl:     ttl,
	}
}

// Put parks the args under a fresh stream id.
func (r *streamRepository) Put(args ChatArgs) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = streamEntry{args: args, createdAt: time.Now()}
	return id
}

// Consume returns the args for a stream id at most once: the entry is deleted
// under the same lock that finds it, so a second open on the same id fails.
func (r *streamRepository) Consume(id string) (ChatArgs, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return ChatArgs{}, false
	}
	delete(r.entries, id)

	if r.ttl > 0 && time.Since(entry.createdAt) > r.ttl {
		return ChatArgs{}, false
	}
	return entry.args, true
}

// Sweep drops entries past their TTL and reports how many were removed.
func (r *streamRepository) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.entries {
		if time.Since(entry.createdAt) > r.ttl {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}
