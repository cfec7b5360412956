package models

import "github.com/samber/lo"

// Group is a "campfire" chat. Membership is owned by the directory,
// the router only ever reads it.
type Group struct {
	BaseModel

	Name    string    `json:"name"`
	Members []Account `json:"members,omitempty" gorm:"many2many:group_members;"`

	// MemberIDs keeps the ordered member list for directories which do not preload Members.
	MemberIDs []uint `json:"member_ids" gorm:"-"`
}

func (v Group) MemberList() []uint {
	if len(v.MemberIDs) > 0 || len(v.Members) == 0 {
		return v.MemberIDs
	}
	return lo.Map(v.Members, func(item Account, _ int) uint {
		return item.ID
	})
}
