// Package codec turns recorded voice reactions into text which can sit inside
// a JSON mailbox document, and back.
//
// The text form is a data url: data:<mime>;base64,<payload>.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

var ErrMalformedPayload = errors.New("malformed payload")

const DefaultMIME = "audio/webm"

var AllowedMIME = []string{
	"audio/webm",
	"audio/mpeg",
	"audio/ogg",
	"audio/wav",
	"audio/mp4",
	"audio/aac",
}

const (
	schemePrefix  = "data:"
	base64Marker  = ";base64"
	dataSeparator = ","
)

func Allowed(mimeType string) bool {
	return lo.Contains(AllowedMIME, baseType(mimeType))
}

func Encode(data []byte, mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if len(mimeType) == 0 {
		mimeType = DefaultMIME
	}
	// Anything which could break the surrounding document gets dropped.
	mimeType = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' || r == ',' {
			return -1
		}
		return r
	}, mimeType)

	var sb strings.Builder
	sb.Grow(len(schemePrefix) + len(mimeType) + len(base64Marker) + 1 + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString(schemePrefix)
	sb.WriteString(mimeType)
	sb.WriteString(base64Marker)
	sb.WriteString(dataSeparator)
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return sb.String()
}

func Decode(text string) ([]byte, string, error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil, "", fmt.Errorf("%w: empty text", ErrMalformedPayload)
	}
	if !strings.HasPrefix(text, schemePrefix) {
		return nil, "", fmt.Errorf("%w: missing %q prefix", ErrMalformedPayload, schemePrefix)
	}

	header, body, ok := strings.Cut(strings.TrimPrefix(text, schemePrefix), dataSeparator)
	if !ok {
		return nil, "", fmt.Errorf("%w: missing data separator", ErrMalformedPayload)
	}
	if !strings.HasSuffix(header, base64Marker) {
		return nil, "", fmt.Errorf("%w: payload is not base64 encoded", ErrMalformedPayload)
	}

	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	} else if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: payload decoded to zero bytes", ErrMalformedPayload)
	}

	tag := baseType(strings.TrimSuffix(header, base64Marker))
	if !lo.Contains(AllowedMIME, tag) {
		tag = DefaultMIME
	}

	return data, tag, nil
}

// Sniff detects the type of raw audio, falls back to DefaultMIME when the
// detected type is not an allowed one.
func Sniff(data []byte) string {
	if len(data) == 0 {
		return DefaultMIME
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, allowed := range AllowedMIME {
			if m.Is(allowed) {
				return allowed
			}
		}
	}
	return DefaultMIME
}

func baseType(in string) string {
	in = strings.TrimSpace(in)
	if len(in) == 0 {
		return ""
	}
	if parsed, _, err := mime.ParseMediaType(in); err == nil {
		return parsed
	}
	before, _, _ := strings.Cut(in, ";")
	return strings.ToLower(strings.TrimSpace(before))
}
