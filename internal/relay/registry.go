package relay

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// DefaultShards is the shard count used when NewRegistry is given zero.
const DefaultShards = 64

// Registry maps room keys to rooms.
//
// Keys are spread over independently locked shards: operations on the same
// key are serialized, operations on keys in different shards run in
// parallel. The registry only supports exact-key access; it cannot be
// iterated.
type Registry struct {
	shards []*shard
	rooms  atomic.Int64

	// onCreate and onRemove observe room lifecycle (metrics).
	onCreate func()
	onRemove func()
}

type shard struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry with n shards.
func NewRegistry(n int) *Registry {
	if n <= 0 {
		n = DefaultShards
	}
	r := &Registry{shards: make([]*shard, n)}
	for i := range r.shards {
		r.shards[i] = &shard{rooms: make(map[string]*Room)}
	}
	return r
}

// OnLifecycle registers callbacks run when a room is created or removed.
// It must be called before the registry is shared.
func (r *Registry) OnLifecycle(created, removed func()) {
	r.onCreate = created
	r.onRemove = removed
}

// Txn is exclusive access to a single key of the registry. It is only valid
// inside the Do callback that received it.
type Txn struct {
	reg   *Registry
	shard *shard
	key   string
}

// Do runs fn with the key's shard locked.
func (r *Registry) Do(key string, fn func(tx *Txn)) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&Txn{reg: r, shard: s, key: key})
}

// GetOrCreate returns the room for the key, creating an empty one if absent.
func (tx *Txn) GetOrCreate() *Room {
	if rm, ok := tx.shard.rooms[tx.key]; ok {
		return rm
	}
	rm := newRoom(tx.key)
	tx.shard.rooms[tx.key] = rm
	tx.reg.rooms.Add(1)
	if tx.reg.onCreate != nil {
		tx.reg.onCreate()
	}
	return rm
}

// Get returns the room for the key if it exists.
func (tx *Txn) Get() (*Room, bool) {
	rm, ok := tx.shard.rooms[tx.key]
	return rm, ok
}

// Remove deletes the room for the key. Callers check emptiness first.
func (tx *Txn) Remove() {
	if _, ok := tx.shard.rooms[tx.key]; !ok {
		return
	}
	delete(tx.shard.rooms, tx.key)
	tx.reg.rooms.Add(-1)
	if tx.reg.onRemove != nil {
		tx.reg.onRemove()
	}
}

// GetOrCreate is the single-call form of Txn.GetOrCreate.
func (r *Registry) GetOrCreate(key string) (rm *Room) {
	r.Do(key, func(tx *Txn) { rm = tx.GetOrCreate() })
	return rm
}

// Remove is the single-call form of Txn.Remove.
func (r *Registry) Remove(key string) {
	r.Do(key, func(tx *Txn) { tx.Remove() })
}

// Stats returns a room's counts, or false if the key has no room.
func (r *Registry) Stats(key string) (c Counts, ok bool) {
	r.Do(key, func(tx *Txn) {
		var rm *Room
		if rm, ok = tx.Get(); ok {
			c = rm.Counts()
		}
	})
	return c, ok
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	return int(r.rooms.Load())
}

func (r *Registry) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}
