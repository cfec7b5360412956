package services

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type MembershipResolver struct {
	directory Directory
}

func NewMembershipResolver(directory Directory) *MembershipResolver {
	return &MembershipResolver{directory: directory}
}

// MembersOf returns the current members of a group.
// An unknown group has no members, it is not an error.
func (v *MembershipResolver) MembersOf(groupId uint) []uint {
	group, err := v.directory.GetGroup(groupId)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Uint("group", groupId).Msg("An error occurred when resolving group members...")
		}
		return []uint{}
	}
	return append([]uint{}, lo.Uniq(group.MemberList())...)
}
