package services

import (
	"sync"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

// AnyKey subscribes to changes of every key.
const AnyKey = "*"

type ChangeHandler func(event models.ChangeEvent)

// Notifier tells every other context of the same user that a shared key
// changed. The context which made the change is not notified.
type Notifier interface {
	Publish(origin, key string, value *string)
	Subscribe(origin, key string, handler ChangeHandler) (unsubscribe func())
}

type subscription struct {
	origin  string
	handler ChangeHandler
}

// LocalNotifier delivers change events inside the current process.
type LocalNotifier struct {
	// Key -> Subscription ID -> Subscription
	subscriptions map[string]map[uint64]subscription
	next          uint64
	lock          sync.Mutex
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subscriptions: make(map[string]map[uint64]subscription)}
}

func (v *LocalNotifier) Subscribe(origin, key string, handler ChangeHandler) func() {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.next++
	id := v.next
	if _, ok := v.subscriptions[key]; !ok {
		v.subscriptions[key] = make(map[uint64]subscription)
	}
	v.subscriptions[key][id] = subscription{origin: origin, handler: handler}

	return func() {
		v.lock.Lock()
		defer v.lock.Unlock()
		if _, ok := v.subscriptions[key]; ok {
			delete(v.subscriptions[key], id)
			if len(v.subscriptions[key]) == 0 {
				delete(v.subscriptions, key)
			}
		}
	}
}

// Subscribers counts the subscriptions registered on key.
func (v *LocalNotifier) Subscribers(key string) int {
	v.lock.Lock()
	defer v.lock.Unlock()
	return len(v.subscriptions[key])
}

// Publish calls the handlers outside the lock, so a handler may subscribe
// or unsubscribe without deadlocking.
func (v *LocalNotifier) Publish(origin, key string, value *string) {
	event := models.ChangeEvent{
		Key:      key,
		NewValue: value,
		Type:     models.EventMailboxChanged,
		Origin:   origin,
	}
	if value == nil {
		event.Type = models.EventMailboxCleared
	}

	var pending []ChangeHandler
	v.lock.Lock()
	buckets := []string{key}
	if key != AnyKey {
		buckets = append(buckets, AnyKey)
	}
	for _, bucket := range buckets {
		for _, item := range v.subscriptions[bucket] {
			if len(origin) > 0 && item.origin == origin {
				continue
			}
			pending = append(pending, item.handler)
		}
	}
	v.lock.Unlock()

	for _, handler := range pending {
		v.dispatch(handler, event)
	}
}

func (v *LocalNotifier) dispatch(handler ChangeHandler, event models.ChangeEvent) {
	defer func() {
		if err := recover(); err != nil {
			log.Error().Any("panic", err).Str("key", event.Key).Msg("Change handler panicked...")
		}
	}()
	handler(event)
}

// StoreHook bridges mailbox writes into the notifier.
func StoreHook(notifier Notifier, origin string) func(key string, value *string) {
	return func(key string, value *string) {
		notifier.Publish(origin, key, value)
	}
}
