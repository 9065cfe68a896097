// Package validation checks and sanitizes user-submitted content.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"atelier/internal/models"

	"github.com/microcosm-cc/bluemonday"
)

// Limits on user-submitted content.
const (
	MaxTitleLength   = 300
	MaxContentLength = 40000
	MaxCommentLength = 10000
	MaxTags          = 10
	MaxTagLength     = 32
	MaxURLLength     = 2048
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
	tagRegex     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// PostInput is the author-controlled part of a post.
type PostInput struct {
	Type     models.PostType
	Title    string
	Content  string
	MediaURL string
	LinkURL  string
	Tags     []string
}

// SanitizeTitle strips all markup.
func SanitizeTitle(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// SanitizeBody keeps the user-generated-content subset of HTML.
func SanitizeBody(s string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(s))
}

// NormalizeTags lowercases, trims and de-duplicates tags, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ValidatePost sanitizes in and checks it against the rules for its type.
// It returns the cleaned input or a ValidationError.
func ValidatePost(in PostInput) (PostInput, error) {
	in.Title = SanitizeTitle(in.Title)
	in.Content = SanitizeBody(in.Content)
	in.MediaURL = strings.TrimSpace(in.MediaURL)
	in.LinkURL = strings.TrimSpace(in.LinkURL)
	in.Tags = NormalizeTags(in.Tags)

	if in.Title == "" {
		return in, models.NewValidationError("title is required")
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return in, models.NewValidationError(fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if utf8.RuneCountInString(in.Content) > MaxContentLength {
		return in, models.NewValidationError(fmt.Sprintf("content must be at most %d characters", MaxContentLength))
	}
	if len(in.Tags) > MaxTags {
		return in, models.NewValidationError(fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	for _, t := range in.Tags {
		if len(t) > MaxTagLength || !tagRegex.MatchString(t) {
			return in, models.NewValidationError(fmt.Sprintf("invalid tag %q", t))
		}
	}

	switch in.Type {
	case models.PostTypeText:
		if in.Content == "" {
			return in, models.NewValidationError("content is required for text posts")
		}
	case models.PostTypeImage, models.PostTypeArtwork:
		if in.MediaURL == "" {
			return in, models.NewValidationError(fmt.Sprintf("mediaUrl is required for %s posts", in.Type))
		}
	case models.PostTypeLink:
		if in.LinkURL == "" {
			return in, models.NewValidationError("linkUrl is required for link posts")
		}
	}

	if err := validateURL("mediaUrl", in.MediaURL); err != nil {
		return in, err
	}
	if err := validateURL("linkUrl", in.LinkURL); err != nil {
		return in, err
	}
	return in, nil
}

// ValidateComment sanitizes and checks a comment body.
func ValidateComment(content string) (string, error) {
	content = SanitizeBody(content)
	if content == "" {
		return "", models.NewValidationError("content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", models.NewValidationError(fmt.Sprintf("content must be at most %d characters", MaxCommentLength))
	}
	return content, nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > MaxURLLength {
		return models.NewValidationError(fmt.Sprintf("%s is too long", field))
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.NewValidationError(fmt.Sprintf("%s must be an absolute http(s) URL", field))
	}
	return nil
}
