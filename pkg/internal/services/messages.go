package services

import (
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/codec"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"github.com/google/uuid"
)

// NewMessageID combines the current millisecond with 48 random bits,
// two sends within the same millisecond still get different ids.
func NewMessageID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), random[:12])
}

// FormatDuration renders a duration the way players show it, m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func FormatSeconds(seconds float64) string {
	return FormatDuration(time.Duration(seconds * float64(time.Second)))
}

func newMessage(sender models.Account, kind models.MessageKind, content string) models.Message {
	return models.Message{
		ID:           NewMessageID(),
		Kind:         kind,
		SenderName:   sender.DisplayName(),
		SenderAvatar: sender.Avatar,
		Content:      content,
		CreatedAt:    models.FormatCreatedAt(time.Now()),
	}
}

func NewTextMessage(sender models.Account, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return models.Message{}, fmt.Errorf("empty message was not allowed")
	}
	return newMessage(sender, models.MessageKindText, text), nil
}

func NewImageMessage(sender models.Account, attachment, caption string) (models.Message, error) {
	if len(attachment) == 0 {
		return models.Message{}, fmt.Errorf("image message requires an attachment")
	}
	message := newMessage(sender, models.MessageKindImage, strings.TrimSpace(caption))
	message.Attachment = attachment
	return message, nil
}

// NewVoiceMessage encodes audio right away, messages never carry raw audio.
func NewVoiceMessage(sender models.Account, audio []byte, mimeType string, duration time.Duration, waveform []float64) (models.Message, error) {
	if len(audio) == 0 {
		return models.Message{}, fmt.Errorf("voice message requires audio")
	}
	if len(mimeType) == 0 {
		mimeType = codec.Sniff(audio)
	}
	message := newMessage(sender, models.MessageKindVoice, "")
	message.VoicePayload = &models.VoicePayload{
		Duration:     FormatDuration(duration),
		Waveform:     waveform,
		EncodedAudio: codec.Encode(audio, mimeType),
	}
	return message, nil
}

func NewSystemMessage(content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if len(content) == 0 {
		return models.Message{}, fmt.Errorf("system message requires content")
	}
	return newMessage(models.Account{Name: "System"}, models.MessageKindSystem, content), nil
}
