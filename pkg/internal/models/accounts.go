package models

import "github.com/samber/lo"

// Account is the identity a mailbox belongs to.
// Name, Nick and Avatar are copied into every message the account sends,
// readers never look them up again.
type Account struct {
	BaseModel

	Name   string  `json:"name"`
	Nick   string  `json:"nick"`
	Avatar string  `json:"avatar"`
	Groups []Group `json:"groups,omitempty" gorm:"many2many:group_members;"`

	// GroupIDs is filled by directories which do not keep the relation in gorm.
	GroupIDs []uint `json:"group_ids" gorm:"-"`
}

func (v Account) DisplayName() string {
	if len(v.Nick) > 0 {
		return v.Nick
	}
	return v.Name
}

func (v Account) GroupList() []uint {
	if len(v.GroupIDs) > 0 || len(v.Groups) == 0 {
		return v.GroupIDs
	}
	return lo.Map(v.Groups, func(item Group, _ int) uint {
		return item.ID
	})
}
