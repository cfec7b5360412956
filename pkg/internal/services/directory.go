package services

import (
	"errors"
	"fmt"
	"sync"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("not found")

// Directory is where accounts and group memberships come from.
// It is owned by another system, the router only reads it.
type Directory interface {
	GetAccount(id uint) (models.Account, error)
	GetGroup(id uint) (models.Group, error)
}

// StaticDirectory serves a fixed set of accounts and groups, loaded from
// settings or built by tests.
type StaticDirectory struct {
	accounts map[uint]models.Account
	groups   map[uint]models.Group
	lock     sync.RWMutex
}

func NewStaticDirectory(accounts []models.Account, groups []models.Group) *StaticDirectory {
	dir := &StaticDirectory{
		accounts: make(map[uint]models.Account),
		groups:   make(map[uint]models.Group),
	}
	for _, account := range accounts {
		dir.PutAccount(account)
	}
	for _, group := range groups {
		dir.PutGroup(group)
	}
	return dir
}

func (v *StaticDirectory) PutAccount(account models.Account) {
	v.lock.Lock()
	defer v.lock.Unlock()
	v.accounts[account.ID] = account
}

func (v *StaticDirectory) PutGroup(group models.Group) {
	v.lock.Lock()
	defer v.lock.Unlock()
	group.MemberIDs = append([]uint(nil), group.MemberList()...)
	v.groups[group.ID] = group
}

func (v *StaticDirectory) GetAccount(id uint) (models.Account, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	account, ok := v.accounts[id]
	if !ok {
		return account, fmt.Errorf("account #%d %w", id, ErrNotFound)
	}
	if len(account.GroupIDs) == 0 {
		for _, group := range v.groups {
			if lo.Contains(group.MemberIDs, id) {
				account.GroupIDs = append(account.GroupIDs, group.ID)
			}
		}
	}
	return account, nil
}

func (v *StaticDirectory) GetGroup(id uint) (models.Group, error) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	group, ok := v.groups[id]
	if !ok {
		return group, fmt.Errorf("group #%d %w", id, ErrNotFound)
	}
	group.MemberIDs = append([]uint(nil), group.MemberIDs...)
	return group, nil
}

// DatabaseDirectory reads accounts and groups through gorm.
type DatabaseDirectory struct {
	db *gorm.DB
}

func NewDatabaseDirectory(db *gorm.DB) *DatabaseDirectory {
	return &DatabaseDirectory{db: db}
}

func (v *DatabaseDirectory) GetAccount(id uint) (models.Account, error) {
	var account models.Account
	if err := v.db.Preload("Groups").First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return account, fmt.Errorf("account #%d %w", id, ErrNotFound)
		}
		return account, fmt.Errorf("unable to get account #%d: %v", id, err)
	}
	account.GroupIDs = account.GroupList()
	return account, nil
}

func (v *DatabaseDirectory) GetGroup(id uint) (models.Group, error) {
	var group models.Group
	if err := v.db.Preload("Members", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group, fmt.Errorf("group #%d %w", id, ErrNotFound)
		}
		return group, fmt.Errorf("unable to get group #%d: %v", id, err)
	}
	group.MemberIDs = group.MemberList()
	return group, nil
}
