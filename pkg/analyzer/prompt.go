package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

// Analysis types
const (
	AnalysisUIFix       = "ui_fix"
	AnalysisCodeReview  = "code_review"
	AnalysisFigmaToCode = "figma_to_code"
)

// DescribePrompt asks for a short description of a stitched composite. Each
// capture is one horizontal band, top to bottom.
const DescribePrompt = `This image is %d screenshots stacked vertically, top to bottom.
Describe briefly what each part shows, one line per part.`

// DesignTokensPrompt asks for the design system of a screenshot
const DesignTokensPrompt = `Analyze this UI and extract:
1. Color palette (hex codes)
2. Typography (font families, sizes)
3. Spacing values
4. Border radius values
5. Shadow styles

Return JSON only:
{"colors": [], "typography": {}, "spacing": [], "borderRadius": [], "shadows": []}
No markdown, no code fences, no comments, no trailing commas.`

const uiFixTemplate = `I have a React component and a screenshot of its current UI. Please analyze the visual issues and provide the fixed code.

Current React Code:
` + "```jsx\n%s\n```" + `

Code Analysis Summary:
- Components found: %s
- Has useState: %s
- Has useEffect: %s
- CSS approach: %s

Please:
1. Identify all visual issues in the screenshot
2. Provide the complete fixed React code
3. Explain what changes were made and why
4. Include any necessary CSS fixes

Focus on fixing layout issues, spacing problems, alignment, colors, and any UI inconsistencies.`

const codeReviewTemplate = `Review this React component and its rendered UI for best practices and potential improvements.

React Code:
` + "```jsx\n%s\n```" + `

Please provide:
1. Code quality assessment
2. Performance suggestions
3. Accessibility improvements
4. Best practice recommendations`

const figmaToCodePrompt = `Convert this Figma design to a React component.
Please provide complete, production-ready React code with proper styling.`

const codeOnlySuffix = `

Return only the code. Do not include an explanation.`

// BuildPrompt renders the prompt for analysisType and returns it with the
// type actually used. Unknown types fall back to ui_fix.
func BuildPrompt(analysisType, code string, a types.CodeAnalysis, includeExplanation bool) (string, string) {
	var prompt string
	switch analysisType {
	case AnalysisCodeReview:
		prompt = fmt.Sprintf(codeReviewTemplate, code)
	case AnalysisFigmaToCode:
		prompt = figmaToCodePrompt
	default:
		analysisType = AnalysisUIFix
		prompt = fmt.Sprintf(uiFixTemplate, code,
			strings.Join(a.Components, ", "),
			titleBool(a.HasState), titleBool(a.HasEffects),
			a.StylingApproach)
	}

	if !includeExplanation && analysisType != AnalysisCodeReview {
		prompt += codeOnlySuffix
	}
	return prompt, analysisType
}

func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

var codeBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```jsx\n(.*?)```"),
	regexp.MustCompile("(?s)```javascript\n(.*?)```"),
	regexp.MustCompile("(?s)```react\n(.*?)```"),
	regexp.MustCompile("(?s)```\n(.*?)```"),
}

// ExtractCode returns the first fenced code block of a model reply, or the
// whole reply when it has none
func ExtractCode(response string) string {
	for _, re := range codeBlockPatterns {
		if m := re.FindStringSubmatch(response); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return response
}

// ParseDesignTokens parses the model's design token reply. Unparseable replies
// yield empty tokens rather than an error.
func ParseDesignTokens(raw string) *types.DesignTokens {
	raw = sanitizeModelJSON(raw)

	tokens := &types.DesignTokens{}
	if strings.HasPrefix(raw, "{") {
		if err := json.Unmarshal([]byte(raw), tokens); err != nil {
			tokens = &types.DesignTokens{}
		}
	}
	return normalizeTokens(tokens)
}

// normalizeTokens trims, deduplicates and lowercases colors, and replaces nil
// collections with empty ones so they encode as [] and {}
func normalizeTokens(t *types.DesignTokens) *types.DesignTokens {
	t.Colors = normalizeValues(t.Colors, true)
	t.Spacing = normalizeValues(t.Spacing, false)
	t.BorderRadius = normalizeValues(t.BorderRadius, false)
	t.Shadows = normalizeValues(t.Shadows, false)
	if t.Typography == nil {
		t.Typography = map[string]any{}
	}
	return t
}

func normalizeValues(values types.Values, lower bool) types.Values {
	seen := map[string]struct{}{}
	out := make(types.Values, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from a JSON reply
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	// whole-line comments only, URLs may contain //
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
