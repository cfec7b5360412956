package services

import (
	"testing"
	"time"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/ledger"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierSkipsOrigin(t *testing.T) {
	notifier := NewLocalNotifier()

	var self, other []models.ChangeEvent
	notifier.Subscribe("tab-a", "chat:1:friend:2", func(event models.ChangeEvent) { self = append(self, event) })
	notifier.Subscribe("tab-b", "chat:1:friend:2", func(event models.ChangeEvent) { other = append(other, event) })

	notifier.Publish("tab-a", "chat:1:friend:2", lo.ToPtr("[]"))

	assert.Empty(t, self)
	require.Len(t, other, 1)
	assert.Equal(t, "chat:1:friend:2", other[0].Key)
	assert.Equal(t, models.EventMailboxChanged, other[0].Type)
	assert.Equal(t, "[]", *other[0].NewValue)
}

func TestNotifierWildcardAndUnsubscribe(t *testing.T) {
	notifier := NewLocalNotifier()

	var events []models.ChangeEvent
	unsubscribe := notifier.Subscribe("tab-b", AnyKey, func(event models.ChangeEvent) { events = append(events, event) })
	notifier.Subscribe("tab-b", "chat:9:group:1", func(models.ChangeEvent) { panic("boom") })

	notifier.Publish("tab-a", "chat:9:group:1", nil)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventMailboxCleared, events[0].Type)
	assert.Nil(t, events[0].NewValue)

	unsubscribe()
	notifier.Publish("tab-a", "chat:9:group:1", nil)
	assert.Len(t, events, 1)
}

func TestNotifierWildcardPublishDeliversOnce(t *testing.T) {
	notifier := NewLocalNotifier()

	count := 0
	notifier.Subscribe("tab-b", AnyKey, func(models.ChangeEvent) { count++ })
	assert.Equal(t, 1, notifier.Subscribers(AnyKey))

	notifier.Publish("tab-a", AnyKey, nil)
	assert.Equal(t, 1, count)

	notifier.Publish("tab-a", "chat:1:friend:2", nil)
	assert.Equal(t, 2, count)
}

func TestStoreHookPublishesWrites(t *testing.T) {
	notifier := NewLocalNotifier()
	store := mailbox.NewStore(mailbox.NewMemoryBackend())
	store.OnChange(StoreHook(notifier, "server"))

	var keys []string
	notifier.Subscribe("tab-b", AnyKey, func(event models.ChangeEvent) { keys = append(keys, event.Key) })

	router := NewRouter(store, nil, NewMembershipResolver(newDirectory()))
	message, err := NewTextMessage(bob, "hey")
	require.NoError(t, err)
	require.NoError(t, router.SendDirect(2, 1, message))

	assert.Equal(t, []string{"chat:2:friend:1", "chat:1:friend:2"}, keys)
}

func TestLedgerCleaner(t *testing.T) {
	routes := ledger.NewMemoryLedger()
	require.NoError(t, routes.Record(models.RouteRecord{FromID: 1, ToID: lo.ToPtr(uint(2)), MessageID: "old", SentAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, routes.Record(models.RouteRecord{FromID: 1, ToID: lo.ToPtr(uint(2)), MessageID: "new", SentAt: time.Now()}))

	NewLedgerCleaner(routes, 24*time.Hour).DoAutoLedgerCleanup()

	history, err := routes.DirectHistory(1, 2)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "new", history[0].MessageID)
}
