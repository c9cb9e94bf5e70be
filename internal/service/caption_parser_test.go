package service

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseCaption(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		description string
		hashtags    []string
	}{
		{
			name:        "labelled chinese caption",
			raw:         "描述：一隻貓坐在窗台上。\n標籤：cat, window, indoor",
			description: "一隻貓坐在窗台上",
			hashtags:    []string{"cat", "window", "indoor"},
		},
		{
			name:        "english labels with hash prefixes",
			raw:         "Description: A boy running on the field.\nTags: #boy, #running, field",
			description: "A boy running on the field",
			hashtags:    []string{"boy", "running", "field"},
		},
		{
			name:        "labels are case insensitive",
			raw:         "DESCRIPTION: students at the library\nTAGS: books, study",
			description: "students at the library",
			hashtags:    []string{"books", "study"},
		},
		{
			name:        "no labels uses first long line",
			raw:         "短\n一群學生在教室裡專心上課，老師在黑板前講解。\n另一行也很長但不會被選到的內容",
			description: "一群學生在教室裡專心上課，老師在黑板前講解",
			hashtags:    []string{},
		},
		{
			name:        "short text falls back to raw",
			raw:         "ok cat",
			description: "ok cat",
			hashtags:    []string{},
		},
		{
			name:        "last tag line wins",
			raw:         "Tags: a, b\n描述：學生們在操場上跑步比賽\nTags: c, d",
			description: "學生們在操場上跑步比賽",
			hashtags:    []string{"c", "d"},
		},
		{
			name:        "first qualifying description wins",
			raw:         "描述：第一個描述很長喔\n描述：第二個描述也很長喔",
			description: "第一個描述很長喔",
			hashtags:    []string{},
		},
		{
			name:        "too short description is skipped",
			raw:         "描述：短\n這是一段足夠長的後備描述文字",
			description: "這是一段足夠長的後備描述文字",
			hashtags:    []string{},
		},
		{
			name:        "full width separators",
			raw:         "描述：校園裡的一隻小狗在散步\n標籤：貓、狗，鳥",
			description: "校園裡的一隻小狗在散步",
			hashtags:    []string{"貓", "狗", "鳥"},
		},
		{
			name:        "tag line without colon",
			raw:         "描述：合唱團在禮堂表演\ntags choir, stage",
			description: "合唱團在禮堂表演",
			hashtags:    []string{"choir", "stage"},
		},
		{
			name:        "description label without colon uses whole line",
			raw:         "這張照片的描述很有趣，孩子們在玩\n標籤：kids, play",
			description: "這張照片的描述很有趣，孩子們在玩",
			hashtags:    []string{"kids", "play"},
		},
		{
			name:        "empty input",
			raw:         "",
			description: "",
			hashtags:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCaption(tt.raw)
			if got.Description != tt.description {
				t.Errorf("description = %q, want %q", got.Description, tt.description)
			}
			if !reflect.DeepEqual(got.Hashtags, tt.hashtags) {
				t.Errorf("hashtags = %#v, want %#v", got.Hashtags, tt.hashtags)
			}
		})
	}
}

func TestParseCaptionIsStable(t *testing.T) {
	raw := "描述：一隻貓在睡覺。\n標籤：cat, sleeping, cute"

	first := ParseCaption(raw)
	second := ParseCaption(raw)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("parsing twice differs: %#v vs %#v", first, second)
	}
	if first.Description != "一隻貓在睡覺" {
		t.Errorf("description = %q", first.Description)
	}
}

func TestParseCaptionHashtagLimits(t *testing.T) {
	long := strings.Repeat("x", 30)
	raw := "描述：運動會大隊接力比賽\n標籤：" + long + ", a, b, c, d, e, f, g, h, i, j, k, l"

	got := ParseCaption(raw)
	if len(got.Hashtags) != 10 {
		t.Fatalf("expected 10 hashtags, got %d: %v", len(got.Hashtags), got.Hashtags)
	}
	if got.Hashtags[0] != "a" {
		t.Errorf("expected over-long token to be dropped, first tag is %q", got.Hashtags[0])
	}
	if got.Hashtags[9] != "j" {
		t.Errorf("expected list truncated after j, last tag is %q", got.Hashtags[9])
	}
}

func TestParseCaptionRawPrefixFallback(t *testing.T) {
	raw := strings.Repeat("abcdefgh\n", 30)

	got := ParseCaption(raw)
	if n := utf8.RuneCountInString(got.Description); n != 100 {
		t.Errorf("expected 100 rune description, got %d", n)
	}
	if !strings.HasPrefix(got.Description, "abcdefgh\nabcdefgh") {
		t.Errorf("unexpected description prefix: %q", got.Description[:20])
	}
}

func TestFailedCaption(t *testing.T) {
	got := FailedCaption()
	if got.Description != "分析失敗" {
		t.Errorf("description = %q", got.Description)
	}
	if got.Hashtags == nil || len(got.Hashtags) != 0 {
		t.Errorf("expected empty non-nil hashtags, got %#v", got.Hashtags)
	}
}
