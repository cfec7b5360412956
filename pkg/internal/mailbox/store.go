// Package mailbox keeps every participant's own replica of a conversation.
//
// A mailbox is keyed by (owner, counterpart, kind) and holds an ordered list of
// messages. Writes only ever add messages, and a message id is stored at most
// once per mailbox, so contexts writing the same mailbox concurrently converge.
// Clearing is the only destructive operation and it is not coordinated with
// other contexts.
package mailbox

import (
	"errors"
	"fmt"
	"sync"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/codec"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrInvalidMessage    = errors.New("invalid message")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChangeHook is called after a mailbox document was written or removed.
// value is nil when the document is gone.
type ChangeHook func(key string, value *string)

type Conversation struct {
	Key         string `json:"key"`
	Counterpart uint   `json:"counterpart"`
	Kind        Kind   `json:"kind"`
	Count       int    `json:"count"`
}

type Store struct {
	backend Backend
	hooks   []ChangeHook

	// lock only serializes writers of this process, other contexts are not coordinated.
	lock sync.Mutex
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// OnChange registers hook. Register hooks before the store is shared.
func (v *Store) OnChange(hook ChangeHook) {
	v.hooks = append(v.hooks, hook)
}

func (v *Store) Close() error {
	return v.backend.Close()
}

// Append adds message to the mailbox unless a message with the same id is already there.
func (v *Store) Append(owner, counterpart uint, kind Kind, message models.Message) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	key := Key(owner, counterpart, kind)
	document, err := v.appendLocked(key, message.ID, raw)
	if err != nil {
		return err
	} else if document != nil {
		v.emit(key, lo.ToPtr(string(document)))
	}
	return nil
}

// appendLocked returns the written document, or nil when the message was already stored.
func (v *Store) appendLocked(key, id string, raw []byte) ([]byte, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	items, err := v.load(key)
	if err != nil {
		return nil, err
	}

	exists := lo.ContainsBy(items, func(item jsoniter.RawMessage) bool {
		return peekID(item) == id
	})
	if exists {
		log.Debug().Str("key", key).Str("message", id).Msg("Message already in mailbox, skipping...")
		return nil, nil
	}

	items = append(items, raw)
	document, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to encode mailbox %s: %v", ErrPersistenceFailed, key, err)
	}
	if err := v.backend.Set(key, document); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("An error occurred when writing mailbox...")
		return nil, fmt.Errorf("%w: unable to write mailbox %s: %v", ErrPersistenceFailed, key, err)
	}

	return document, nil
}

// List returns the messages of a mailbox in arrival order.
// Voice payloads are decoded into Audio where possible; a payload which
// cannot be decoded keeps its encoded text and is returned without Audio.
func (v *Store) List(owner, counterpart uint, kind Kind) ([]models.Message, error) {
	key := Key(owner, counterpart, kind)
	items, err := v.load(key)
	if err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(items))
	for idx, item := range items {
		var message models.Message
		if err := json.Unmarshal(item, &message); err != nil {
			log.Warn().Err(err).Str("key", key).Int("index", idx).Msg("Unable to decode stored message, skipping...")
			continue
		}
		materialize(&message)
		out = append(out, message)
	}

	return out, nil
}

func (v *Store) Contains(owner, counterpart uint, kind Kind, id string) (bool, error) {
	items, err := v.load(Key(owner, counterpart, kind))
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(items, func(item jsoniter.RawMessage) bool {
		return peekID(item) == id
	}), nil
}

// Clear wipes a single mailbox. The counterpart's replica is left alone.
func (v *Store) Clear(owner, counterpart uint, kind Kind) error {
	key := Key(owner, counterpart, kind)

	v.lock.Lock()
	err := v.backend.Delete(key)
	v.lock.Unlock()

	if err != nil {
		return fmt.Errorf("%w: unable to clear mailbox %s: %v", ErrPersistenceFailed, key, err)
	}
	v.emit(key, nil)
	return nil
}

// ClearAll wipes every mailbox owned by owner.
func (v *Store) ClearAll(owner uint) error {
	cleared, err := v.clearAllLocked(owner)
	for _, key := range cleared {
		v.emit(key, nil)
	}
	return err
}

func (v *Store) clearAllLocked(owner uint) ([]string, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	keys, err := v.backend.Keys(OwnerPrefix(owner))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list mailboxes of %d: %v", ErrPersistenceFailed, owner, err)
	}

	var cleared []string
	for _, key := range keys {
		if err := v.backend.Delete(key); err != nil {
			return cleared, fmt.Errorf("%w: unable to clear mailbox %s: %v", ErrPersistenceFailed, key, err)
		}
		cleared = append(cleared, key)
	}
	return cleared, nil
}

// Ping reads a key which is never written, so only the medium itself can fail it.
func (v *Store) Ping() error {
	if _, err := v.backend.Get("chat:ping"); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// Conversations lists every mailbox of owner with its message count.
func (v *Store) Conversations(owner uint) ([]Conversation, error) {
	keys, err := v.backend.Keys(OwnerPrefix(owner))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list mailboxes of %d: %v", ErrPersistenceFailed, owner, err)
	}

	out := make([]Conversation, 0, len(keys))
	for _, key := range keys {
		parts, err := ParseKey(key)
		if err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Foreign key under mailbox prefix, skipping...")
			continue
		}
		items, err := v.load(key)
		if err != nil {
			return nil, err
		}
		out = append(out, Conversation{
			Key:         key,
			Counterpart: parts.Counterpart,
			Kind:        parts.Kind,
			Count:       len(items),
		})
	}
	return out, nil
}

func (v *Store) load(key string) ([]jsoniter.RawMessage, error) {
	document, err := v.backend.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("An error occurred when reading mailbox...")
		return nil, fmt.Errorf("%w: unable to read mailbox %s: %v", ErrPersistenceFailed, key, err)
	}
	if len(document) == 0 {
		return nil, nil
	}

	var items []jsoniter.RawMessage
	if err := json.Unmarshal(document, &items); err != nil {
		return nil, fmt.Errorf("%w: mailbox %s is not a message list: %v", ErrPersistenceFailed, key, err)
	}
	return items, nil
}

func (v *Store) emit(key string, value *string) {
	for _, hook := range v.hooks {
		hook(key, value)
	}
}

func peekID(item jsoniter.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(item, &head)
	return head.ID
}

func materialize(message *models.Message) {
	for _, payload := range message.EncodedPayloads() {
		data, mimeType, err := codec.Decode(payload.EncodedAudio)
		if err != nil {
			log.Debug().Err(err).Str("message", message.ID).Msg("Voice payload unavailable...")
			continue
		}
		payload.Audio = &models.AudioBlob{Data: data, MIME: mimeType}
	}
}
