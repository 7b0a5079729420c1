package analysis

import (
	"regexp"
	"strings"

	"github.com/coderag-dev/coderag/pkg/types"
)

// Issue is a single flagged line in a source file.
type Issue struct {
	Line    int    `json:"line"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Report summarizes one file: flagged issues and a branch-count complexity
// estimate. The zero value means "clean, trivial file".
type Report struct {
	Issues     []Issue `json:"issues,omitempty"`
	Complexity float64 `json:"complexity"`
}

type rule struct {
	name    string
	message string
	pattern *regexp.Regexp
}

var rules = []rule{
	{
		name:    "dynamic-execution",
		message: "dynamic code execution",
		pattern: regexp.MustCompile(`\b(eval|exec)\s*\(`),
	},
	{
		name:    "unsafe-deserialization",
		message: "unsafe deserialization of untrusted data",
		pattern: regexp.MustCompile(`\b(pickle\.loads?|marshal\.loads?|yaml\.load)\s*\(`),
	},
	{
		name:    "sql-injection",
		message: "SQL built by string interpolation",
		pattern: regexp.MustCompile(`(?i)(execute|query|cursor\.execute)\s*\(\s*(f["']|["'].*["']\s*[%+])`),
	},
	{
		name:    "shell-injection",
		message: "subprocess invoked through a shell",
		pattern: regexp.MustCompile(`shell\s*=\s*True|os\.system\s*\(`),
	},
	{
		name:    "weak-hash",
		message: "weak hash algorithm",
		pattern: regexp.MustCompile(`\b(md5|sha1)\s*\(`),
	},
}

var branchPattern = regexp.MustCompile(`(?m)^\s*.*\b(if|elif|else if|for|while|case|when|catch|except|rescue)\b`)

// Analyze runs every rule over content and estimates complexity. It never
// fails; unreadable or binary-looking input just yields an empty report.
func Analyze(content string, _ types.Language) Report {
	var report Report

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
			continue
		}
		for _, r := range rules {
			if r.pattern.MatchString(line) {
				report.Issues = append(report.Issues, Issue{
					Line:    i + 1,
					Rule:    r.name,
					Message: r.message,
				})
			}
		}
	}

	report.Complexity = 1 + float64(len(branchPattern.FindAllString(content, -1)))
	return report
}

// IssueCount is a convenience for metadata population.
func (r Report) IssueCount() int {
	return len(r.Issues)
}
