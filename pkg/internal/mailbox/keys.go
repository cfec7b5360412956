package mailbox

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the kind of counterpart a mailbox is kept against.
type Kind string

const (
	KindFriend = Kind("friend")
	KindGroup  = Kind("group")
)

func ParseKind(in string) (Kind, bool) {
	switch Kind(in) {
	case KindFriend:
		return KindFriend, true
	case KindGroup:
		return KindGroup, true
	default:
		return "", false
	}
}

const (
	// notation:
	// chat:<owner_id>:<kind>:<counterpart_id>
	// debug views read this directly, do not change it.
	MailboxKey    = "chat:%d:%s:%d"
	MailboxPrefix = "chat:%d:"
)

func Key(owner, counterpart uint, kind Kind) string {
	return fmt.Sprintf(MailboxKey, owner, kind, counterpart)
}

func OwnerPrefix(owner uint) string {
	return fmt.Sprintf(MailboxPrefix, owner)
}

type KeyParts struct {
	Owner       uint `json:"owner"`
	Kind        Kind `json:"kind"`
	Counterpart uint `json:"counterpart"`
}

func ParseKey(key string) (KeyParts, error) {
	var parts KeyParts

	segments := strings.Split(key, ":")
	if len(segments) != 4 || segments[0] != "chat" {
		return parts, fmt.Errorf("invalid mailbox key %q", key)
	}

	owner, err := strconv.ParseUint(segments[1], 10, 64)
	if err != nil {
		return parts, fmt.Errorf("invalid owner in mailbox key %q: %v", key, err)
	}
	kind, ok := ParseKind(segments[2])
	if !ok {
		return parts, fmt.Errorf("invalid kind in mailbox key %q", key)
	}
	counterpart, err := strconv.ParseUint(segments[3], 10, 64)
	if err != nil {
		return parts, fmt.Errorf("invalid counterpart in mailbox key %q: %v", key, err)
	}

	parts.Owner = uint(owner)
	parts.Kind = kind
	parts.Counterpart = uint(counterpart)
	return parts, nil
}
