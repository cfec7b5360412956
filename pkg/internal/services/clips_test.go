package services

import (
	"testing"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/codec"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/ledger"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClipAdapter(backend mailbox.Backend) *ClipAdapter {
	directory := newDirectory()
	router := NewRouter(mailbox.NewStore(backend), ledger.NewMemoryLedger(), NewMembershipResolver(directory))
	return NewClipAdapter(router, directory)
}

func TestShareNetflixClipWithReaction(t *testing.T) {
	adapter := newClipAdapter(mailbox.NewMemoryBackend())

	payload := NetflixClipPayload{
		ContentID: "1",
		StartTime: lo.ToPtr(39.7),
		EndTime:   lo.ToPtr(52.0),
		ClipID:    "clip-1",
		Title:     "The Heist",
		Duration:  12.3,
	}
	reaction := &RawReaction{Kind: models.ReactionKindText, Content: "lol"}

	result, err := adapter.Share(1, models.PlatformNetflix, payload, reaction, ShareTargets{Friends: []uint{2}})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []uint{2}, result.Direct)
	assert.Empty(t, result.Failures)

	received, err := adapter.router.Store().List(2, 1, mailbox.KindFriend)
	require.NoError(t, err)
	require.Len(t, received, 1)

	message := received[0]
	assert.Equal(t, models.MessageKindClip, message.Kind)
	require.NotNil(t, message.ClipPayload)
	assert.Equal(t, "0:12", message.ClipPayload.Duration)
	require.IsType(t, models.NetflixClip{}, message.ClipPayload.PlatformData)
	assert.Equal(t, "/netflix/watch/1?t=39", models.DeepLink(message.ClipPayload.PlatformData))
	assert.Equal(t, "Netflix", message.ClipPayload.PlatformData.Ref().SharedFrom)
	require.NotNil(t, message.Reaction)
	assert.Equal(t, "lol", message.Reaction.Content)
}

func TestAdaptPrimeClipFromMap(t *testing.T) {
	adapter := newClipAdapter(mailbox.NewMemoryBackend())

	raw := map[string]any{
		"videoId":       "B0X",
		"start":         61.2,
		"end":           70,
		"clipId":        "p-9",
		"originalTitle": "Der Film",
	}
	result, err := adapter.Adapt(alice, models.PlatformPrime, raw, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	payload := result.Message.ClipPayload
	require.NotNil(t, payload)
	assert.Equal(t, "Der Film", payload.Title)
	clip, ok := payload.PlatformData.(models.PrimeClip)
	require.True(t, ok)
	assert.Equal(t, "Der Film", clip.OriginalTitle)
	assert.Equal(t, "/prime/watch/B0X?t=61", models.DeepLink(clip))
}

func TestAdaptIncompleteClipStillBuilds(t *testing.T) {
	adapter := newClipAdapter(mailbox.NewMemoryBackend())

	result, err := adapter.Adapt(alice, models.PlatformNetflix, &NetflixClipPayload{ContentID: "7"}, nil)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.ElementsMatch(t, []string{"startTime is required", "endTime is required", "clipId is required"}, result.Warnings)
	assert.NoError(t, result.Message.Validate())
}

func TestAdaptRejectsUnknownPlatform(t *testing.T) {
	adapter := newClipAdapter(mailbox.NewMemoryBackend())

	_, err := adapter.Adapt(alice, models.Platform("Hulu"), map[string]any{}, nil)
	assert.ErrorIs(t, err, ErrUnknownPlatform)

	_, err = adapter.Adapt(alice, models.PlatformNetflix, NetflixClipPayload{ContentID: "1"}, &RawReaction{Kind: "emoji"})
	assert.Error(t, err)
}

func TestAdaptVoiceReaction(t *testing.T) {
	adapter := newClipAdapter(mailbox.NewMemoryBackend())
	audio := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x01, 0x02}

	result, err := adapter.Adapt(alice, models.PlatformNetflix, NetflixClipPayload{
		ContentID: "1",
		StartTime: lo.ToPtr(0.0),
		EndTime:   lo.ToPtr(3.0),
		ClipID:    "c",
	}, &RawReaction{Kind: models.ReactionKindVoice, Audio: audio, MIME: "audio/ogg", Duration: 4})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	voice := result.Message.Reaction.VoicePayload
	require.NotNil(t, voice)
	assert.Equal(t, "0:04", voice.Duration)
	data, mimeType, err := codec.Decode(voice.EncodedAudio)
	require.NoError(t, err)
	assert.Equal(t, audio, data)
	assert.Equal(t, "audio/ogg", mimeType)

	result, err = adapter.Adapt(alice, models.PlatformNetflix, NetflixClipPayload{
		ContentID: "1",
		StartTime: lo.ToPtr(0.0),
		EndTime:   lo.ToPtr(3.0),
		ClipID:    "c",
	}, &RawReaction{Kind: models.ReactionKindVoice})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Warnings, "reaction.audio is required")
}

func TestShareKeepsGoingAfterFailure(t *testing.T) {
	backend := &faultyBackend{MemoryBackend: mailbox.NewMemoryBackend(), reject: []string{"chat:2:"}}
	adapter := newClipAdapter(backend)

	payload := NetflixClipPayload{ContentID: "1", StartTime: lo.ToPtr(1.0), EndTime: lo.ToPtr(2.0), ClipID: "c"}
	result, err := adapter.Share(1, models.PlatformNetflix, payload, nil, ShareTargets{
		Friends: []uint{2, 3, 3},
		Groups:  []uint{movieNight},
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{3}, result.Direct)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, []uint{1, 3}, result.Groups[0].Delivered)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, mailbox.KindFriend, result.Failures[0].Kind)
	assert.Equal(t, uint(2), result.Failures[0].TargetID)
	assert.Equal(t, mailbox.KindGroup, result.Failures[1].Kind)
	assert.ErrorIs(t, result.Failures[1].Err, ErrPartialFanout)
}

func TestShareUnknownSender(t *testing.T) {
	adapter := newClipAdapter(mailbox.NewMemoryBackend())

	_, err := adapter.Share(404, models.PlatformNetflix, NetflixClipPayload{}, nil, ShareTargets{Friends: []uint{2}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoredClipSchema(t *testing.T) {
	adapter := newClipAdapter(mailbox.NewMemoryBackend())

	payload := NetflixClipPayload{
		ContentID: "1",
		StartTime: lo.ToPtr(10.0),
		EndTime:   lo.ToPtr(25.0),
		ClipID:    "clip-1",
		Duration:  15,
	}
	reaction := &RawReaction{Kind: models.ReactionKindVoice, Audio: []byte("abc"), MIME: "audio/ogg", Duration: 3}

	_, err := adapter.Share(1, models.PlatformNetflix, payload, reaction, ShareTargets{Friends: []uint{2}})
	require.NoError(t, err)

	document, err := adapter.router.Store().List(2, 1, mailbox.KindFriend)
	require.NoError(t, err)
	require.Len(t, document, 1)

	raw, err := jsoniter.Marshal(document[0])
	require.NoError(t, err)
	var shape struct {
		ClipPayload map[string]any `json:"clip_payload"`
		Reaction    struct {
			VoicePayload map[string]any `json:"voice_payload"`
		} `json:"reaction"`
	}
	require.NoError(t, jsoniter.Unmarshal(raw, &shape))

	assert.Equal(t, "0:15", shape.ClipPayload["duration_formatted"])
	assert.NotContains(t, shape.ClipPayload, "duration")
	assert.Equal(t, "0:03", shape.Reaction.VoicePayload["duration_formatted"])
	assert.Equal(t, "data:audio/ogg;base64,YWJj", shape.Reaction.VoicePayload["encoded_audio"])
	assert.NotContains(t, shape.Reaction.VoicePayload, "duration")

	// Reading it back restores the in-memory fields.
	assert.Equal(t, "0:15", document[0].ClipPayload.Duration)
	require.NotNil(t, document[0].Reaction.VoicePayload)
	assert.Equal(t, "0:03", document[0].Reaction.VoicePayload.Duration)
	require.NotNil(t, document[0].Reaction.VoicePayload.Audio)
	assert.Equal(t, []byte("abc"), document[0].Reaction.VoicePayload.Audio.Data)
}
