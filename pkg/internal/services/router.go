package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/ledger"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var (
	ErrDeliveryVerificationFailed = errors.New("delivery verification failed")
	ErrPartialFanout              = errors.New("partial fanout")
)

// PartialFanoutError lists the members whose replica was not written.
// The members which did receive the message are not rolled back.
type PartialFanoutError struct {
	GroupID uint
	Failed  []uint
	Causes  map[uint]error
}

func (v *PartialFanoutError) Error() string {
	parts := lo.Map(v.Failed, func(item uint, _ int) string {
		return fmt.Sprintf("#%d: %v", item, v.Causes[item])
	})
	return fmt.Sprintf("%s: group #%d failed for %d member(s): %s", ErrPartialFanout, v.GroupID, len(v.Failed), strings.Join(parts, "; "))
}

func (v *PartialFanoutError) Is(target error) bool {
	return target == ErrPartialFanout
}

type FanoutResult struct {
	GroupID    uint   `json:"group_id"`
	Recipients []uint `json:"recipients"`
	Delivered  []uint `json:"delivered"`
	Failed     []uint `json:"failed"`
}

// Router writes a message into every mailbox replica it belongs to and
// records the delivery in the ledger.
type Router struct {
	store    *mailbox.Store
	ledger   ledger.Ledger
	resolver *MembershipResolver
	now      func() time.Time
}

func NewRouter(store *mailbox.Store, ledger ledger.Ledger, resolver *MembershipResolver) *Router {
	return &Router{
		store:    store,
		ledger:   ledger,
		resolver: resolver,
		now:      time.Now,
	}
}

func (v *Router) Store() *mailbox.Store {
	return v.store
}

func (v *Router) Ledger() ledger.Ledger {
	return v.ledger
}

// SendDirect stores the message in the sender's and the recipient's
// mailboxes, then reads both back to confirm it landed. A message missing
// after the write fails with ErrDeliveryVerificationFailed, it is never retried.
func (v *Router) SendDirect(from, to uint, message models.Message) error {
	if err := v.store.Append(from, to, mailbox.KindFriend, message); err != nil {
		deliveryCounter.WithLabelValues(deliveryModeDirect, "failed").Inc()
		return fmt.Errorf("unable to store message for sender #%d: %w", from, err)
	}
	if err := v.store.Append(to, from, mailbox.KindFriend, message); err != nil {
		deliveryCounter.WithLabelValues(deliveryModeDirect, "failed").Inc()
		return fmt.Errorf("unable to store message for recipient #%d: %w", to, err)
	}

	v.record(models.RouteRecord{
		FromID:    from,
		ToID:      lo.ToPtr(to),
		MessageID: message.ID,
	})

	for _, pair := range [][2]uint{{from, to}, {to, from}} {
		ok, err := v.store.Contains(pair[0], pair[1], mailbox.KindFriend, message.ID)
		if err != nil || !ok {
			deliveryCounter.WithLabelValues(deliveryModeDirect, "unverified").Inc()
			log.Warn().Err(err).
				Str("key", mailbox.Key(pair[0], pair[1], mailbox.KindFriend)).
				Str("message", message.ID).
				Msg("Message is missing from mailbox after write...")
			return fmt.Errorf("%w: message %s not found in %s", ErrDeliveryVerificationFailed, message.ID, mailbox.Key(pair[0], pair[1], mailbox.KindFriend))
		}
	}

	deliveryCounter.WithLabelValues(deliveryModeDirect, "delivered").Inc()

	return nil
}

// SendGroup stores one replica per current member of the group.
// A group without members is a silent no-op and is not recorded.
// Failures on single members do not stop the fan-out, they are
// reported through *PartialFanoutError once every member was tried.
func (v *Router) SendGroup(from, groupId uint, message models.Message) (FanoutResult, error) {
	result := FanoutResult{
		GroupID:    groupId,
		Recipients: v.resolver.MembersOf(groupId),
		Delivered:  []uint{},
		Failed:     []uint{},
	}
	if len(result.Recipients) == 0 {
		log.Debug().Uint("group", groupId).Str("message", message.ID).Msg("Group has no members, skipping delivery...")
		deliveryCounter.WithLabelValues(deliveryModeGroup, "skipped").Inc()
		return result, nil
	}

	causes := make(map[uint]error)
	for _, member := range result.Recipients {
		if err := v.store.Append(member, groupId, mailbox.KindGroup, message); err != nil {
			log.Warn().Err(err).Uint("group", groupId).Uint("member", member).Msg("Unable to deliver group message to member...")
			fanoutFailureCounter.Inc()
			result.Failed = append(result.Failed, member)
			causes[member] = err
			continue
		}
		result.Delivered = append(result.Delivered, member)
	}

	v.record(models.RouteRecord{
		FromID:    from,
		ToGroupID: lo.ToPtr(groupId),
		MessageID: message.ID,
	})

	if len(result.Failed) > 0 {
		deliveryCounter.WithLabelValues(deliveryModeGroup, "partial").Inc()
		sort.Slice(result.Failed, func(i, j int) bool { return result.Failed[i] < result.Failed[j] })
		return result, &PartialFanoutError{
			GroupID: groupId,
			Failed:  result.Failed,
			Causes:  causes,
		}
	}

	deliveryCounter.WithLabelValues(deliveryModeGroup, "delivered").Inc()
	return result, nil
}

// record never fails the delivery, the ledger is an audit trail only.
func (v *Router) record(route models.RouteRecord) {
	if v.ledger == nil {
		return
	}
	route.SentAt = v.now()
	if err := v.ledger.Record(route); err != nil {
		ledgerFailureCounter.Inc()
		log.Warn().Err(err).Uint("from", route.FromID).Str("message", route.MessageID).Msg("Unable to record route, ignoring...")
	}
}
