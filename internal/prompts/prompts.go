package prompts

// ============================================================================
// 共用標籤詞庫 (Shared Label Lexicons)
// ============================================================================

// HashtagLabels mark the tag line in a caption. Matched case-insensitively.
var HashtagLabels = []string{"標籤", "标签", "hashtag", "tags", "label", "關鍵字"}

// DescriptionLabels mark the description line in a caption. Matched case-insensitively.
var DescriptionLabels = []string{"描述", "說明", "说明", "description", "caption"}

// ============================================================================
// Caption Prompts (Vision Language Model)
// ============================================================================

// CaptionUserPrompt asks for a short Traditional Chinese description and
// 5-10 English tags, with an example of the expected two-line layout.
const CaptionUserPrompt = `分析這張圖片。請用繁體中文提供：
1. 簡短描述（2-3句）
2. 5-10個英文標籤（逗號分隔）

範例格式：
描述：一位學生在操場跑步
標籤：student, running, playground, school, sports`

// CaptionFailedDescription replaces the description when captioning fails.
const CaptionFailedDescription = "分析失敗"
