package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/menta2k/multishot-scanner/pkg/types"
)

var (
	componentPattern = regexp.MustCompile(`(?:function|const|class)\s+([A-Z][a-zA-Z0-9]*)`)
	propsPattern     = regexp.MustCompile(`\(\s*\{.*?\}\s*\)`)
	importPattern    = regexp.MustCompile(`import\s+.*?\s+from\s+['"]([^'"]+)['"]`)
	openTagPattern   = regexp.MustCompile(`<([A-Z][a-zA-Z0-9]*)[^>]*>`)
	elementPattern   = regexp.MustCompile(`<([A-Z][a-zA-Z0-9]*)[\s/>]`)
	utilityClassHint = regexp.MustCompile(`tw-|text-|bg-`)
)

// Packages treated as part of the platform rather than dependencies
var standardLibs = map[string]bool{
	"react": true, "react-dom": true, "path": true, "fs": true,
	"http": true, "https": true, "url": true, "util": true,
}

// AnalyzeCode extracts the structural facts about a React component that the
// analysis prompt refers to
func AnalyzeCode(code string) types.CodeAnalysis {
	analysis := types.CodeAnalysis{
		Components:      uniqueMatches(componentPattern, code),
		HasState:        strings.Contains(code, "useState"),
		HasEffects:      strings.Contains(code, "useEffect"),
		HasProps:        strings.Contains(code, "props") || propsPattern.MatchString(code),
		Imports:         []string{},
		StylingApproach: "unknown",
		Complexity:      "simple",
	}

	for _, m := range importPattern.FindAllStringSubmatch(code, -1) {
		analysis.Imports = append(analysis.Imports, m[1])
	}
	analysis.StylingApproach = stylingApproach(code, analysis.Imports)
	analysis.Dependencies = ExtractDependencies(analysis.Imports)

	lines := strings.Count(code, "\n") + 1
	switch {
	case lines < 50:
		analysis.Complexity = "simple"
	case lines < 150:
		analysis.Complexity = "moderate"
	default:
		analysis.Complexity = "complex"
	}

	analysis.ComponentTree = ComponentTree(code)
	analysis.SyntaxIssues = ValidateJSX(code)
	analysis.Suggestions = SuggestImprovements(analysis)
	return analysis
}

func stylingApproach(code string, imports []string) string {
	joined := strings.Join(imports, " ")
	switch {
	case strings.Contains(joined, "styled-components"):
		return "styled-components"
	case strings.Contains(joined, "css") || strings.Contains(code, ".module.css"):
		return "css-modules"
	case strings.Contains(code, "makeStyles") || strings.Contains(joined, "@mui"):
		return "material-ui"
	case strings.Contains(strings.ToLower(code), "tailwind") || strings.Contains(code, "className="):
		if utilityClassHint.MatchString(code) {
			return "tailwind"
		}
		return "inline-classes"
	case strings.Contains(code, "style={"):
		return "inline-styles"
	}
	return "unknown"
}

// ExtractDependencies returns the third-party packages named by imports,
// skipping relative paths and platform packages
func ExtractDependencies(imports []string) []string {
	deps := []string{}
	seen := map[string]bool{}
	for _, imp := range imports {
		if strings.HasPrefix(imp, ".") {
			continue
		}
		pkg := strings.SplitN(imp, "/", 2)[0]
		if standardLibs[pkg] || seen[pkg] {
			continue
		}
		seen[pkg] = true
		deps = append(deps, pkg)
	}
	return deps
}

// ValidateJSX runs cheap structural checks and returns any likely problems
func ValidateJSX(code string) []string {
	var issues []string

	checked := map[string]bool{}
	for _, m := range openTagPattern.FindAllStringSubmatch(code, -1) {
		tag := m[1]
		if checked[tag] {
			continue
		}
		checked[tag] = true
		closed := strings.Contains(code, "</"+tag+">")
		selfClosing := regexp.MustCompile(`<` + tag + `[^>]*/>`).MatchString(code)
		if !closed && !selfClosing {
			issues = append(issues, fmt.Sprintf("Possibly unclosed tag: %s", tag))
		}
	}

	if i := strings.Index(code, "() =>"); i >= 0 && !strings.Contains(code[:i], "const") {
		issues = append(issues, "Arrow function might be missing variable declaration")
	}
	if strings.Count(code, "{") != strings.Count(code, "}") {
		issues = append(issues, "Unbalanced curly braces")
	}
	if strings.Count(code, "(") != strings.Count(code, ")") {
		issues = append(issues, "Unbalanced parentheses")
	}
	return issues
}

// ComponentTree counts how often each component element is rendered
func ComponentTree(code string) map[string]int {
	tree := map[string]int{}
	for _, m := range elementPattern.FindAllStringSubmatch(code, -1) {
		tree[m[1]]++
	}
	return tree
}

// SuggestImprovements turns an analysis into refactoring hints
func SuggestImprovements(a types.CodeAnalysis) []string {
	var suggestions []string
	if !a.HasState && a.Complexity == "complex" {
		suggestions = append(suggestions, "Consider breaking down this component into smaller pieces")
	}
	if a.StylingApproach == "inline-styles" {
		suggestions = append(suggestions, "Consider using CSS modules or styled-components for better maintainability")
	}
	if len(a.Components) > 5 {
		suggestions = append(suggestions, "Consider splitting components into separate files")
	}
	if !a.HasProps && len(a.Components) > 1 {
		suggestions = append(suggestions, "Consider using props for component communication")
	}
	return suggestions
}

// uniqueMatches returns the first submatch of every match, deduplicated,
// in order of first appearance
func uniqueMatches(re *regexp.Regexp, s string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// sortedKeys returns the keys of a count map ordered by count, then name
func sortedKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
