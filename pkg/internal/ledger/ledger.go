// Package ledger keeps the audit log of delivery attempts.
// Nothing reads it to decide delivery, losing entries only loses history.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type Ledger interface {
	Record(route models.RouteRecord) error
	// DirectHistory returns routes between a and b in both directions.
	DirectHistory(a, b uint) ([]models.RouteRecord, error)
	GroupHistory(groupId uint) ([]models.RouteRecord, error)
	// Prune drops routes sent before the deadline and returns how many were dropped.
	Prune(before time.Time) (int64, error)
}

func validate(route models.RouteRecord) error {
	if (route.ToID == nil) == (route.ToGroupID == nil) {
		return fmt.Errorf("route must target exactly one of user or group")
	}
	if len(route.MessageID) == 0 {
		return fmt.Errorf("route must reference a message")
	}
	return nil
}

type MemoryLedger struct {
	routes []models.RouteRecord
	nextId uint
	lock   sync.RWMutex
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (v *MemoryLedger) Record(route models.RouteRecord) error {
	if err := validate(route); err != nil {
		return err
	}
	if route.SentAt.IsZero() {
		route.SentAt = time.Now()
	}

	v.lock.Lock()
	defer v.lock.Unlock()
	v.nextId++
	route.ID = v.nextId
	v.routes = append(v.routes, route)
	return nil
}

func (v *MemoryLedger) DirectHistory(a, b uint) ([]models.RouteRecord, error) {
	return v.filter(func(item models.RouteRecord) bool {
		if item.ToID == nil {
			return false
		}
		return (item.FromID == a && *item.ToID == b) || (item.FromID == b && *item.ToID == a)
	}), nil
}

func (v *MemoryLedger) GroupHistory(groupId uint) ([]models.RouteRecord, error) {
	return v.filter(func(item models.RouteRecord) bool {
		return item.ToGroupID != nil && *item.ToGroupID == groupId
	}), nil
}

func (v *MemoryLedger) Prune(before time.Time) (int64, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	kept := lo.Filter(v.routes, func(item models.RouteRecord, _ int) bool {
		return !item.SentAt.Before(before)
	})
	count := int64(len(v.routes) - len(kept))
	v.routes = kept
	return count, nil
}

func (v *MemoryLedger) filter(predicate func(item models.RouteRecord) bool) []models.RouteRecord {
	v.lock.RLock()
	defer v.lock.RUnlock()

	out := lo.Filter(v.routes, func(item models.RouteRecord, _ int) bool {
		return predicate(item)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out
}

// DatabaseLedger stores routes in the route_records table.
type DatabaseLedger struct {
	db *gorm.DB
}

func NewDatabaseLedger(db *gorm.DB) *DatabaseLedger {
	return &DatabaseLedger{db: db}
}

func (v *DatabaseLedger) Record(route models.RouteRecord) error {
	if err := validate(route); err != nil {
		return err
	}
	if route.SentAt.IsZero() {
		route.SentAt = time.Now()
	}
	route.ID = 0
	return v.db.Create(&route).Error
}

func (v *DatabaseLedger) DirectHistory(a, b uint) ([]models.RouteRecord, error) {
	var routes []models.RouteRecord
	if err := v.db.
		Where("(from_id = ? AND to_id = ?) OR (from_id = ? AND to_id = ?)", a, b, b, a).
		Order("sent_at ASC, id ASC").
		Find(&routes).Error; err != nil {
		return routes, err
	}
	return routes, nil
}

func (v *DatabaseLedger) GroupHistory(groupId uint) ([]models.RouteRecord, error) {
	var routes []models.RouteRecord
	if err := v.db.
		Where("to_group_id = ?", groupId).
		Order("sent_at ASC, id ASC").
		Find(&routes).Error; err != nil {
		return routes, err
	}
	return routes, nil
}

func (v *DatabaseLedger) Prune(before time.Time) (int64, error) {
	tx := v.db.Where("sent_at < ?", before).Delete(&models.RouteRecord{})
	return tx.RowsAffected, tx.Error
}
