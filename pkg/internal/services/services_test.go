package services

import (
	"errors"
	"strings"
	"sync"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/ledger"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"github.com/samber/lo"
)

var (
	alice = models.Account{BaseModel: models.BaseModel{ID: 1}, Name: "alice", Nick: "Alice", Avatar: "/avatars/alice.png"}
	bob   = models.Account{BaseModel: models.BaseModel{ID: 2}, Name: "bob"}
	carol = models.Account{BaseModel: models.BaseModel{ID: 3}, Name: "carol"}
)

const movieNight = 10

func newDirectory() *StaticDirectory {
	return NewStaticDirectory(
		[]models.Account{alice, bob, carol},
		[]models.Group{{BaseModel: models.BaseModel{ID: movieNight}, Name: "movie night", MemberIDs: []uint{1, 2, 3}}},
	)
}

func newRouter(backend mailbox.Backend, routes ledger.Ledger) *Router {
	return NewRouter(mailbox.NewStore(backend), routes, NewMembershipResolver(newDirectory()))
}

// faultyBackend rejects writes to the listed keys and may silently drop
// writes to others, which looks like a successful write that never landed.
type faultyBackend struct {
	*mailbox.MemoryBackend
	reject []string
	lossy  bool
	lock   sync.Mutex
}

func (v *faultyBackend) Set(key string, value []byte) error {
	v.lock.Lock()
	defer v.lock.Unlock()
	if lo.ContainsBy(v.reject, func(item string) bool { return strings.HasPrefix(key, item) }) {
		return errors.New("medium unavailable")
	}
	if v.lossy {
		return nil
	}
	return v.MemoryBackend.Set(key, value)
}

type brokenLedger struct {
	*ledger.MemoryLedger
}

func (v brokenLedger) Record(models.RouteRecord) error {
	return errors.New("ledger unavailable")
}
