package analyzer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

func TestBuildPrompt(t *testing.T) {
	a := types.CodeAnalysis{
		Components:      []string{"Card", "Title"},
		HasState:        true,
		StylingApproach: "tailwind",
	}

	prompt, kind := BuildPrompt("ui_fix", "<Card/>", a, true)
	if kind != AnalysisUIFix {
		t.Errorf("Expected ui_fix, got %s", kind)
	}
	for _, want := range []string{"```jsx\n<Card/>\n```", "Components found: Card, Title", "Has useState: True", "Has useEffect: False", "CSS approach: tailwind"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Do not include an explanation") {
		t.Error("Explanation should be requested")
	}

	prompt, kind = BuildPrompt("code_review", "<Card/>", a, false)
	if kind != AnalysisCodeReview || !strings.Contains(prompt, "Accessibility improvements") {
		t.Errorf("Unexpected code review prompt (%s): %s", kind, prompt)
	}

	prompt, kind = BuildPrompt("figma_to_code", "", a, false)
	if kind != AnalysisFigmaToCode || !strings.HasSuffix(prompt, "Do not include an explanation.") {
		t.Errorf("Unexpected figma prompt (%s): %s", kind, prompt)
	}

	_, kind = BuildPrompt("haiku", "x", a, true)
	if kind != AnalysisUIFix {
		t.Errorf("Unknown type should fall back to ui_fix, got %s", kind)
	}
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"jsx", "Here:\n```jsx\nconst A = () => <div/>;\n```\ndone", "const A = () => <div/>;"},
		{"javascript", "```javascript\nlet x = 1;\n```", "let x = 1;"},
		{"bare", "```\nplain\n```", "plain"},
		{"jsx preferred", "```\nfirst\n```\n```jsx\nsecond\n```", "second"},
		{"none", "no code here", "no code here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCode(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParseDesignTokens(t *testing.T) {
	raw := "```json\n{\n  // palette\n  \"colors\": [\"#FFFFFF\", \"#ffffff\", \" #111 \"],\n  \"typography\": {\"body\": \"Inter 14px\"},\n  \"spacing\": [4, \"8px\", 4],\n  \"borderRadius\": [\"6px\",],\n  \"shadows\": []\n}\n```"

	tokens := ParseDesignTokens(raw)
	if !reflect.DeepEqual(tokens.Colors, types.Values{"#ffffff", "#111"}) {
		t.Errorf("Unexpected colors %v", tokens.Colors)
	}
	if !reflect.DeepEqual(tokens.Spacing, types.Values{"4", "8px"}) {
		t.Errorf("Unexpected spacing %v", tokens.Spacing)
	}
	if !reflect.DeepEqual(tokens.BorderRadius, types.Values{"6px"}) {
		t.Errorf("Unexpected border radius %v", tokens.BorderRadius)
	}
	if tokens.Typography["body"] != "Inter 14px" {
		t.Errorf("Unexpected typography %v", tokens.Typography)
	}
}

func TestParseDesignTokensFallback(t *testing.T) {
	for _, raw := range []string{"I cannot see the image", "{not json}", ""} {
		tokens := ParseDesignTokens(raw)
		if tokens.Colors == nil || len(tokens.Colors) != 0 || tokens.Typography == nil {
			t.Errorf("%q: expected empty tokens, got %+v", raw, tokens)
		}
	}
}
