package models

import (
	"fmt"
	"math"
	"net/url"

	jsoniter "github.com/json-iterator/go"
)

type Platform string

const (
	PlatformNetflix = Platform("Netflix")
	PlatformPrime   = Platform("Prime Video")
)

// Slug is the path segment the platform front end is mounted at.
func (v Platform) Slug() string {
	switch v {
	case PlatformNetflix:
		return "netflix"
	case PlatformPrime:
		return "prime"
	default:
		return ""
	}
}

func ParsePlatform(in string) (Platform, bool) {
	switch in {
	case "netflix", string(PlatformNetflix):
		return PlatformNetflix, true
	case "prime", "prime-video", "primevideo", string(PlatformPrime):
		return PlatformPrime, true
	default:
		return "", false
	}
}

// ClipRef is the part every platform clip shares.
type ClipRef struct {
	ContentID  string  `json:"content_id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	ClipID     string  `json:"clip_id"`
	SharedFrom string  `json:"shared_from"`
}

// PlatformData is implemented by NetflixClip and PrimeClip only.
type PlatformData interface {
	Platform() Platform
	Ref() ClipRef
	platformData()
}

type NetflixClip struct {
	ClipRef
}

func (v NetflixClip) Platform() Platform { return PlatformNetflix }
func (v NetflixClip) Ref() ClipRef       { return v.ClipRef }
func (v NetflixClip) platformData()      {}

type PrimeClip struct {
	ClipRef
	OriginalTitle string `json:"original_title,omitempty"`
}

func (v PrimeClip) Platform() Platform { return PlatformPrime }
func (v PrimeClip) Ref() ClipRef       { return v.ClipRef }
func (v PrimeClip) platformData()      {}

type ClipPayload struct {
	Title        string       `json:"title"`
	Thumbnail    string       `json:"thumbnail"`
	Duration     string       `json:"duration_formatted"`
	Platform     Platform     `json:"platform"`
	PlatformData PlatformData `json:"platform_data"`
}

func (v *ClipPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title        string              `json:"title"`
		Thumbnail    string              `json:"thumbnail"`
		Duration     string              `json:"duration_formatted"`
		Platform     Platform            `json:"platform"`
		PlatformData jsoniter.RawMessage `json:"platform_data"`
	}
	json := jsoniter.ConfigCompatibleWithStandardLibrary
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	v.Title = raw.Title
	v.Thumbnail = raw.Thumbnail
	v.Duration = raw.Duration
	v.Platform = raw.Platform
	v.PlatformData = nil

	if len(raw.PlatformData) == 0 || string(raw.PlatformData) == "null" {
		return nil
	}

	switch raw.Platform {
	case PlatformNetflix:
		var out NetflixClip
		if err := json.Unmarshal(raw.PlatformData, &out); err != nil {
			return err
		}
		v.PlatformData = out
	case PlatformPrime:
		var out PrimeClip
		if err := json.Unmarshal(raw.PlatformData, &out); err != nil {
			return err
		}
		v.PlatformData = out
	default:
		return fmt.Errorf("unknown clip platform %q", raw.Platform)
	}

	return nil
}

// DeepLink resolves a clip into the resume-playback url of its platform.
func DeepLink(data PlatformData) string {
	ref := data.Ref()
	return fmt.Sprintf("/%s/watch/%s?t=%d", data.Platform().Slug(), url.PathEscape(ref.ContentID), int64(math.Floor(ref.Start)))
}
