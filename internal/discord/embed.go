package discord

import (
	"errors"
	"net/url"
	"unicode/utf8"
)

// Discord's published embed limits, enforced before the webhook call so the
// dashboard gets a field-level 400 instead of an opaque upstream rejection.
const (
	maxEmbeds            = 10
	maxTitleLength       = 256
	maxDescriptionLength = 2000
	maxFields            = 25
	maxFieldNameLength   = 256
	maxFieldValueLength  = 1024
	maxFooterTextLength  = 2048
)

var (
	ErrNoEmbeds            = errors.New("Embed must be provided")
	ErrTooManyEmbeds       = errors.New("Too many embeds (max 10)")
	ErrTitleTooLong        = errors.New("Embed title too long (max 256 characters)")
	ErrDescriptionTooLong  = errors.New("Embed description too long (max 2000 characters)")
	ErrTooManyFields       = errors.New("Too many fields (max 25)")
	ErrFieldTooLong        = errors.New("Field name or value too long")
	ErrInvalidThumbnailURL = errors.New("Invalid thumbnail URL")
	ErrInvalidImageURL     = errors.New("Invalid image URL")
	ErrFooterTooLong       = errors.New("Footer text too long (max 2048 characters)")
)

// Embed mirrors the Discord webhook embed object.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Thumbnail   *EmbedMedia  `json:"thumbnail,omitempty"`
	Image       *EmbedMedia  `json:"image,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedMedia carries a thumbnail or image URL.
type EmbedMedia struct {
	URL string `json:"url,omitempty"`
}

// EmbedFooter carries the footer text of an embed.
type EmbedFooter struct {
	Text string `json:"text,omitempty"`
}

// ValidateEmbeds checks a dashboard message against Discord's embed limits.
// The returned error message is surfaced verbatim in the 400 response body.
func ValidateEmbeds(embeds []Embed) error {
	if len(embeds) == 0 {
		return ErrNoEmbeds
	}
	if len(embeds) > maxEmbeds {
		return ErrTooManyEmbeds
	}
	for _, embed := range embeds {
		// Limits count characters, not bytes; multibyte text must not shrink
		// the allowance.
		if utf8.RuneCountInString(embed.Title) > maxTitleLength {
			return ErrTitleTooLong
		}
		if utf8.RuneCountInString(embed.Description) > maxDescriptionLength {
			return ErrDescriptionTooLong
		}
		if len(embed.Fields) > maxFields {
			return ErrTooManyFields
		}
		for _, field := range embed.Fields {
			if utf8.RuneCountInString(field.Name) > maxFieldNameLength || utf8.RuneCountInString(field.Value) > maxFieldValueLength {
				return ErrFieldTooLong
			}
		}
		if embed.Thumbnail != nil && embed.Thumbnail.URL != "" && !validURL(embed.Thumbnail.URL) {
			return ErrInvalidThumbnailURL
		}
		if embed.Image != nil && embed.Image.URL != "" && !validURL(embed.Image.URL) {
			return ErrInvalidImageURL
		}
		if embed.Footer != nil && utf8.RuneCountInString(embed.Footer.Text) > maxFooterTextLength {
			return ErrFooterTooLong
		}
	}
	return nil
}

func validURL(candidate string) bool {
	parsed, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}
