package service

import (
	"strings"
	"unicode/utf8"

	"github.com/timmy/gallery/internal/prompts"
)

const (
	maxHashtags          = 10
	maxHashtagRunes      = 29
	minDescriptionRunes  = 6  // after-colon text must be longer than 5
	minFallbackLineRunes = 11 // fallback line must be longer than 10
	rawFallbackRunes     = 100
)

// CaptionResult is a parsed caption.
type CaptionResult struct {
	Description string   `json:"description"`
	Hashtags    []string `json:"hashtags"`
}

// FailedCaption is the result recorded when the caption provider fails.
func FailedCaption() CaptionResult {
	return CaptionResult{Description: prompts.CaptionFailedDescription, Hashtags: []string{}}
}

// ParseCaption extracts a description and hashtags from free-form provider text.
//
// A line containing a hashtag label yields the tag list; the last such line
// wins. The first line containing a description label and a colon whose value is longer
// than 5 characters yields the description. Without one, the first line
// longer than 10 characters that is not a tag line is used, then the first
// 100 characters of the raw text.
func ParseCaption(raw string) CaptionResult {
	result := CaptionResult{Hashtags: []string{}}
	lines := strings.Split(raw, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if label, ok := findLabel(line, prompts.HashtagLabels); ok {
			result.Hashtags = splitHashtags(valueAfterLabel(line, label))
			continue
		}

		if result.Description != "" {
			continue
		}
		if label, ok := findLabel(line, prompts.DescriptionLabels); ok && firstColon(line) >= 0 {
			value := valueAfterLabel(line, label)
			if utf8.RuneCountInString(value) >= minDescriptionRunes {
				result.Description = value
			}
		}
	}

	if result.Description == "" {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if utf8.RuneCountInString(line) < minFallbackLineRunes {
				continue
			}
			if _, ok := findLabel(line, prompts.HashtagLabels); ok {
				continue
			}
			result.Description = line
			break
		}
	}

	if result.Description == "" {
		result.Description = truncateRunes(raw, rawFallbackRunes)
	}
	result.Description = trimSentenceEnd(result.Description)

	if len(result.Hashtags) > maxHashtags {
		result.Hashtags = result.Hashtags[:maxHashtags]
	}
	return result
}

// findLabel returns the earliest label occurring in line, ignoring case.
func findLabel(line string, labels []string) (string, bool) {
	best, bestIdx := "", -1
	for _, label := range labels {
		if i := indexFold(line, label); i >= 0 && (bestIdx < 0 || i < bestIdx) {
			best, bestIdx = label, i
		}
	}
	return best, bestIdx >= 0
}

// valueAfterLabel returns the text after the first ASCII or full-width colon,
// or after the label itself when the line has no colon.
func valueAfterLabel(line, label string) string {
	if i := firstColon(line); i >= 0 {
		_, size := utf8.DecodeRuneInString(line[i:])
		return strings.TrimSpace(line[i+size:])
	}
	if i := indexFold(line, label); i >= 0 {
		return strings.TrimSpace(line[i+len(label):])
	}
	return line
}

func firstColon(s string) int {
	ascii := strings.IndexRune(s, ':')
	wide := strings.IndexRune(s, '：')
	switch {
	case ascii < 0:
		return wide
	case wide < 0:
		return ascii
	case ascii < wide:
		return ascii
	default:
		return wide
	}
}

func splitHashtags(value string) []string {
	value = strings.TrimLeft(strings.TrimSpace(value), "#")
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})

	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "#"))
		n := utf8.RuneCountInString(tag)
		if n == 0 || n > maxHashtagRunes {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func trimSentenceEnd(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "。.．")
	return strings.TrimSpace(s)
}

// indexFold is strings.Index ignoring case.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
