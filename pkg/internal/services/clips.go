package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/mailroute/pkg/internal/codec"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/mailbox"
	"git.solsynth.dev/hypernet/mailroute/pkg/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var ErrUnknownPlatform = errors.New("unknown platform")

// NetflixClipPayload is the clip shape the Netflix front end sends.
type NetflixClipPayload struct {
	ContentID  string   `json:"contentId" validate:"required"`
	StartTime  *float64 `json:"startTime" validate:"required"`
	EndTime    *float64 `json:"endTime" validate:"required"`
	ClipID     string   `json:"clipId" validate:"required"`
	Title      string   `json:"title"`
	Thumbnail  string   `json:"thumbnail"`
	Duration   float64  `json:"duration"`
	Message    string   `json:"message"`
	SharedFrom string   `json:"sharedFrom"`
}

// PrimeClipPayload is the clip shape the Prime Video front end sends.
type PrimeClipPayload struct {
	VideoID       string   `json:"videoId" validate:"required"`
	Start         *float64 `json:"start" validate:"required"`
	End           *float64 `json:"end" validate:"required"`
	ClipID        string   `json:"clipId" validate:"required"`
	OriginalTitle string   `json:"originalTitle"`
	Title         string   `json:"title"`
	Thumbnail     string   `json:"thumbnail"`
	Duration      float64  `json:"duration"`
	Message       string   `json:"message"`
	SharedFrom    string   `json:"sharedFrom"`
}

// RawReaction is the reaction recorded alongside a shared clip.
// Audio is raw bytes here, it gets encoded while adapting.
type RawReaction struct {
	Kind     models.ReactionKind `json:"kind"`
	Content  string              `json:"content"`
	Audio    []byte              `json:"audio,omitempty"`
	MIME     string              `json:"mime,omitempty"`
	Duration float64             `json:"duration"`
	Waveform []float64           `json:"waveform,omitempty"`
}

type AdaptResult struct {
	Message  models.Message `json:"message"`
	Valid    bool           `json:"valid"`
	Warnings []string       `json:"warnings"`
}

type ShareTargets struct {
	Friends []uint `json:"friends"`
	Groups  []uint `json:"groups"`
}

type ShareFailure struct {
	Kind     mailbox.Kind `json:"kind"`
	TargetID uint         `json:"target_id"`
	Err      error        `json:"-"`
	Reason   string       `json:"reason"`
}

type ShareResult struct {
	AdaptResult
	Direct   []uint         `json:"direct"`
	Groups   []FanoutResult `json:"groups"`
	Failures []ShareFailure `json:"failures"`
}

// ClipAdapter turns platform clip payloads into clip messages and
// shares them with friends and groups through the router.
type ClipAdapter struct {
	router    *Router
	directory Directory
	validate  *validator.Validate
	now       func() time.Time
}

func NewClipAdapter(router *Router, directory Directory) *ClipAdapter {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || len(name) == 0 {
			return field.Name
		}
		return name
	})
	return &ClipAdapter{
		router:    router,
		directory: directory,
		validate:  validate,
		now:       time.Now,
	}
}

// Adapt builds a clip message from a platform payload. raw may be the
// platform payload struct, a pointer to it or a loosely typed map.
// Missing required fields do not stop the message from being built,
// they are reported as warnings and Valid is false.
func (v *ClipAdapter) Adapt(sender models.Account, platform models.Platform, raw any, reaction *RawReaction) (AdaptResult, error) {
	var result AdaptResult
	var payload models.ClipPayload
	var text string

	switch platform {
	case models.PlatformNetflix:
		var in NetflixClipPayload
		if err := fitPayload(raw, &in); err != nil {
			return result, err
		}
		result.Warnings = v.check(in)
		payload = models.ClipPayload{
			Title:     in.Title,
			Thumbnail: in.Thumbnail,
			Duration:  FormatSeconds(in.Duration),
			Platform:  models.PlatformNetflix,
			PlatformData: models.NetflixClip{ClipRef: models.ClipRef{
				ContentID:  in.ContentID,
				Start:      lo.FromPtr(in.StartTime),
				End:        lo.FromPtr(in.EndTime),
				ClipID:     in.ClipID,
				SharedFrom: lo.Ternary(len(in.SharedFrom) > 0, in.SharedFrom, string(models.PlatformNetflix)),
			}},
		}
		text = in.Message
	case models.PlatformPrime:
		var in PrimeClipPayload
		if err := fitPayload(raw, &in); err != nil {
			return result, err
		}
		result.Warnings = v.check(in)
		payload = models.ClipPayload{
			Title:     lo.Ternary(len(in.Title) > 0, in.Title, in.OriginalTitle),
			Thumbnail: in.Thumbnail,
			Duration:  FormatSeconds(in.Duration),
			Platform:  models.PlatformPrime,
			PlatformData: models.PrimeClip{
				ClipRef: models.ClipRef{
					ContentID:  in.VideoID,
					Start:      lo.FromPtr(in.Start),
					End:        lo.FromPtr(in.End),
					ClipID:     in.ClipID,
					SharedFrom: lo.Ternary(len(in.SharedFrom) > 0, in.SharedFrom, string(models.PlatformPrime)),
				},
				OriginalTitle: in.OriginalTitle,
			},
		}
		text = in.Message
	default:
		return result, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}

	message := newMessage(sender, models.MessageKindClip, strings.TrimSpace(text))
	message.ClipPayload = &payload

	if reaction != nil {
		out, warnings, err := v.adaptReaction(*reaction)
		if err != nil {
			return result, err
		}
		message.Reaction = out
		result.Warnings = append(result.Warnings, warnings...)
	}

	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	result.Valid = len(result.Warnings) == 0
	result.Message = message
	if !result.Valid {
		clipWarningCounter.WithLabelValues(string(platform)).Inc()
		log.Warn().Str("platform", string(platform)).Strs("warnings", result.Warnings).Msg("Clip payload is incomplete, sharing anyway...")
	}

	return result, nil
}

func (v *ClipAdapter) adaptReaction(in RawReaction) (*models.Reaction, []string, error) {
	out := &models.Reaction{
		Kind:      in.Kind,
		Content:   strings.TrimSpace(in.Content),
		CreatedAt: models.FormatCreatedAt(v.now()),
	}

	var warnings []string
	switch in.Kind {
	case models.ReactionKindText:
		if len(out.Content) == 0 {
			warnings = append(warnings, "reaction.content is required")
		}
	case models.ReactionKindVoice:
		if len(in.Audio) == 0 {
			warnings = append(warnings, "reaction.audio is required")
			out.VoicePayload = &models.VoicePayload{
				Duration: FormatSeconds(in.Duration),
				Waveform: in.Waveform,
			}
			break
		}
		mimeType := in.MIME
		if len(mimeType) == 0 {
			mimeType = codec.Sniff(in.Audio)
		}
		out.VoicePayload = &models.VoicePayload{
			Duration:     FormatSeconds(in.Duration),
			Waveform:     in.Waveform,
			EncodedAudio: codec.Encode(in.Audio, mimeType),
		}
	default:
		return nil, nil, fmt.Errorf("unknown reaction kind %q", in.Kind)
	}

	return out, warnings, nil
}

func (v *ClipAdapter) check(payload any) []string {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return []string{err.Error()}
	}
	return lo.Map(fields, func(item validator.FieldError, _ int) string {
		return fmt.Sprintf("%s is %s", item.Field(), item.Tag())
	})
}

// Share adapts the clip once and delivers the same message to every
// friend and group in targets. A failing target does not stop the
// others, it is listed in Failures.
func (v *ClipAdapter) Share(from uint, platform models.Platform, raw any, reaction *RawReaction, targets ShareTargets) (ShareResult, error) {
	var result ShareResult

	sender, err := v.directory.GetAccount(from)
	if err != nil {
		return result, fmt.Errorf("unable to find sender: %w", err)
	}

	adapted, err := v.Adapt(sender, platform, raw, reaction)
	if err != nil {
		return result, err
	}
	result.AdaptResult = adapted
	result.Direct = []uint{}
	result.Groups = []FanoutResult{}
	result.Failures = []ShareFailure{}

	for _, friend := range lo.Uniq(targets.Friends) {
		if err := v.router.SendDirect(from, friend, adapted.Message); err != nil {
			result.Failures = append(result.Failures, ShareFailure{
				Kind:     mailbox.KindFriend,
				TargetID: friend,
				Err:      err,
				Reason:   err.Error(),
			})
			continue
		}
		result.Direct = append(result.Direct, friend)
	}

	for _, group := range lo.Uniq(targets.Groups) {
		fanout, err := v.router.SendGroup(from, group, adapted.Message)
		result.Groups = append(result.Groups, fanout)
		if err != nil {
			result.Failures = append(result.Failures, ShareFailure{
				Kind:     mailbox.KindGroup,
				TargetID: group,
				Err:      err,
				Reason:   err.Error(),
			})
		}
	}

	return result, nil
}

func fitPayload[T any](raw any, out *T) error {
	switch in := raw.(type) {
	case T:
		*out = in
	case *T:
		if in == nil {
			return fmt.Errorf("clip payload is required")
		}
		*out = *in
	case nil:
		return fmt.Errorf("clip payload is required")
	default:
		if err := models.FitStruct(raw, out); err != nil {
			return fmt.Errorf("unable to read clip payload: %v", err)
		}
	}
	return nil
}
