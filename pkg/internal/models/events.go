package models

const (
	EventMailboxChanged = "mailbox.changed"
	EventMailboxCleared = "mailbox.cleared"
)

// ChangeEvent tells other contexts that a shared key changed.
// NewValue is a hint only, receivers re-read the key.
// Only key and new_value go over the wire.
type ChangeEvent struct {
	Key      string  `json:"key"`
	NewValue *string `json:"new_value"`
	Type     string  `json:"-"`
	Origin   string  `json:"-"`
}
