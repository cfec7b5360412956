package mailbox

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Backend is the storage substrate mailboxes are persisted into.
// It behaves like a flat key -> document map shared by every context.
type Backend interface {
	// Get returns nil and no error when the key was never written.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

var ErrQuotaExceeded = errors.New("storage quota exceeded")

// MemoryBackend keeps documents in process memory.
// A positive quota caps the sum of value sizes, so a full medium can be simulated.
type MemoryBackend struct {
	quota int
	data  map[string][]byte
	lock  sync.RWMutex
}

func NewMemoryBackend(quota ...int) *MemoryBackend {
	return &MemoryBackend{
		quota: append(quota, 0)[0],
		data:  make(map[string][]byte),
	}
}

func (v *MemoryBackend) Get(key string) ([]byte, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	val, ok := v.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), val...), nil
}

func (v *MemoryBackend) Set(key string, value []byte) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.quota > 0 {
		used := len(value)
		for k, item := range v.data {
			if k != key {
				used += len(item)
			}
		}
		if used > v.quota {
			return fmt.Errorf("%w: %d bytes used of %d", ErrQuotaExceeded, used, v.quota)
		}
	}

	v.data[key] = append([]byte(nil), value...)
	return nil
}

func (v *MemoryBackend) Delete(key string) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	delete(v.data, key)
	return nil
}

func (v *MemoryBackend) Keys(prefix string) ([]string, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	var out []string
	for k := range v.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (v *MemoryBackend) Close() error {
	return nil
}
