package models

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

type MessageKind string

const (
	MessageKindText   = MessageKind("text")
	MessageKindVoice  = MessageKind("voice")
	MessageKindImage  = MessageKind("image")
	MessageKindClip   = MessageKind("clip")
	MessageKindSystem = MessageKind("system")
)

type ReactionKind string

const (
	ReactionKindText  = ReactionKind("text")
	ReactionKindVoice = ReactionKind("voice")
)

// CreatedAtLayout is how created_at is rendered when a message is built.
const CreatedAtLayout = "2006-01-02 15:04"

func FormatCreatedAt(t time.Time) string {
	return t.Format(CreatedAtLayout)
}

// AudioBlob is a decoded voice payload. It only lives in memory,
// the persisted form is VoicePayload.EncodedAudio.
type AudioBlob struct {
	Data []byte
	MIME string
}

type VoicePayload struct {
	Duration     string    `json:"duration"`
	Waveform     []float64 `json:"waveform,omitempty"`
	EncodedAudio string    `json:"encoded_audio,omitempty"`

	Audio *AudioBlob `json:"-"`
}

type Reaction struct {
	Kind         ReactionKind  `json:"kind"`
	Content      string        `json:"content"`
	CreatedAt    string        `json:"created_at"`
	VoicePayload *VoicePayload `json:"voice_payload,omitempty"`
}

// reactionJSON is the stored form of a reaction. Its voice payload names
// the duration duration_formatted, unlike the one of a voice message.
type reactionJSON struct {
	Kind         ReactionKind       `json:"kind"`
	Content      string             `json:"content"`
	CreatedAt    string             `json:"created_at"`
	VoicePayload *reactionVoiceJSON `json:"voice_payload,omitempty"`
}

type reactionVoiceJSON struct {
	DurationFormatted string    `json:"duration_formatted"`
	Waveform          []float64 `json:"waveform,omitempty"`
	EncodedAudio      string    `json:"encoded_audio,omitempty"`
}

func (v Reaction) MarshalJSON() ([]byte, error) {
	out := reactionJSON{
		Kind:      v.Kind,
		Content:   v.Content,
		CreatedAt: v.CreatedAt,
	}
	if v.VoicePayload != nil {
		out.VoicePayload = &reactionVoiceJSON{
			DurationFormatted: v.VoicePayload.Duration,
			Waveform:          v.VoicePayload.Waveform,
			EncodedAudio:      v.VoicePayload.EncodedAudio,
		}
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(out)
}

func (v *Reaction) UnmarshalJSON(data []byte) error {
	var in reactionJSON
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &in); err != nil {
		return err
	}

	v.Kind = in.Kind
	v.Content = in.Content
	v.CreatedAt = in.CreatedAt
	v.VoicePayload = nil
	if in.VoicePayload != nil {
		v.VoicePayload = &VoicePayload{
			Duration:     in.VoicePayload.DurationFormatted,
			Waveform:     in.VoicePayload.Waveform,
			EncodedAudio: in.VoicePayload.EncodedAudio,
		}
	}
	return nil
}

// Message is immutable once it was built. Every mailbox replica stores
// its own copy, so nothing in here references other records.
type Message struct {
	ID           string        `json:"id"`
	Kind         MessageKind   `json:"kind"`
	SenderName   string        `json:"sender_name"`
	SenderAvatar string        `json:"sender_avatar"`
	Content      string        `json:"content"`
	CreatedAt    string        `json:"created_at"`
	Attachment   string        `json:"attachment,omitempty"`
	VoicePayload *VoicePayload `json:"voice_payload,omitempty"`
	ClipPayload  *ClipPayload  `json:"clip_payload,omitempty"`
	Reaction     *Reaction     `json:"reaction,omitempty"`
}

// Validate checks that the payloads present match the message kind.
func (v Message) Validate() error {
	if len(v.ID) == 0 {
		return fmt.Errorf("message id is required")
	}
	if v.Reaction != nil && v.Kind != MessageKindClip {
		return fmt.Errorf("reaction is only allowed on clip messages, got %q", v.Kind)
	}

	switch v.Kind {
	case MessageKindText:
		if len(v.Content) == 0 {
			return fmt.Errorf("text message requires content")
		}
	case MessageKindVoice:
		if v.VoicePayload == nil {
			return fmt.Errorf("voice message requires voice payload")
		}
	case MessageKindImage:
		if len(v.Attachment) == 0 {
			return fmt.Errorf("image message requires attachment")
		}
	case MessageKindClip:
		if v.ClipPayload == nil || v.ClipPayload.PlatformData == nil {
			return fmt.Errorf("clip message requires clip payload with platform data")
		}
		if v.Reaction != nil {
			switch v.Reaction.Kind {
			case ReactionKindText, ReactionKindVoice:
			default:
				return fmt.Errorf("unknown reaction kind %q", v.Reaction.Kind)
			}
		}
	case MessageKindSystem:
		if len(v.Content) == 0 {
			return fmt.Errorf("system message requires content")
		}
	default:
		return fmt.Errorf("unknown message kind %q", v.Kind)
	}

	return nil
}

// EncodedPayloads returns every voice payload carried by the message,
// the message's own one first and the reaction's one second.
func (v *Message) EncodedPayloads() []*VoicePayload {
	var out []*VoicePayload
	if v.VoicePayload != nil && len(v.VoicePayload.EncodedAudio) > 0 {
		out = append(out, v.VoicePayload)
	}
	if v.Reaction != nil && v.Reaction.VoicePayload != nil && len(v.Reaction.VoicePayload.EncodedAudio) > 0 {
		out = append(out, v.Reaction.VoicePayload)
	}
	return out
}
