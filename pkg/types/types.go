package types

import (
	"encoding/json"
	"strings"
)

// SourceRect is a crop region in source-image pixel coordinates
type SourceRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Fraction is a rectangle expressed as fractions of a surface, each in [0,1]
type Fraction struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Submission is the JSON body sent to the analysis endpoint
type Submission struct {
	Image      string `json:"image"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"`
	ImageCount int    `json:"imageCount"`
}

// AnalysisOptions tunes how the analysis server builds its prompt
type AnalysisOptions struct {
	AnalysisType       string `json:"analysisType,omitempty"`
	IncludeExplanation *bool  `json:"includeExplanation,omitempty"`
}

// EncodeConfig defines how rasterized images are encoded
type EncodeConfig struct {
	Format   string
	Quality  int
	Lossless bool
}

// CodeAnalysis summarizes a React component source
type CodeAnalysis struct {
	Components      []string `json:"components"`
	HasState        bool     `json:"has_state"`
	HasEffects      bool     `json:"has_effects"`
	HasProps        bool     `json:"has_props"`
	Imports         []string `json:"imports"`
	StylingApproach string   `json:"styling_approach"`
	Dependencies    []string `json:"dependencies"`
	Complexity      string   `json:"complexity"`
	SyntaxIssues    []string `json:"syntax_issues,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
	// ComponentTree counts rendered elements per component name
	ComponentTree map[string]int `json:"component_tree"`
}

// UIAnalysis is the result of analyzing a composite screenshot with its code
type UIAnalysis struct {
	FixedCode    string       `json:"fixedCode"`
	FullResponse string       `json:"fullResponse"`
	Analysis     CodeAnalysis `json:"analysis"`
	AnalysisType string       `json:"analysisType"`
}

// DesignTokens are style values extracted from a UI screenshot
type DesignTokens struct {
	Colors       Values         `json:"colors"`
	Typography   map[string]any `json:"typography"`
	Spacing      Values         `json:"spacing"`
	BorderRadius Values         `json:"borderRadius"`
	Shadows      Values         `json:"shadows"`
}

// Values is a list of style values. Models return these as strings or bare
// numbers, so both decode into their string form.
type Values []string

// UnmarshalJSON accepts an array of strings and numbers
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Values, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, strings.TrimSpace(string(item)))
	}
	*v = out
	return nil
}
