package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderag-dev/coderag/pkg/types"
)

func TestAnalyze_FlagsDynamicExecution(t *testing.T) {
	report := Analyze("def run(code):\n    return eval(code)\n", types.LangPython)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "dynamic-execution", report.Issues[0].Rule)
	assert.Equal(t, 2, report.Issues[0].Line)
}

func TestAnalyze_FlagsUnsafeDeserialization(t *testing.T) {
	src := "import pickle\n\ndef load(blob):\n    return pickle.loads(blob)\n"
	report := Analyze(src, types.LangPython)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "unsafe-deserialization", report.Issues[0].Rule)
	assert.Equal(t, 4, report.Issues[0].Line)
}

func TestAnalyze_FlagsStringBuiltSQL(t *testing.T) {
	src := `cursor.execute(f"SELECT * FROM users WHERE id = {user_id}")`
	report := Analyze(src, types.LangPython)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "sql-injection", report.Issues[0].Rule)
}

func TestAnalyze_SkipsComments(t *testing.T) {
	src := "# eval(code) is dangerous, do not use\nx = 1\n"
	report := Analyze(src, types.LangPython)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 0, report.IssueCount())
}

func TestAnalyze_CleanCode(t *testing.T) {
	report := Analyze("def add(a, b):\n    return a + b\n", types.LangPython)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 1.0, report.Complexity)
}

func TestAnalyze_ComplexityCountsBranches(t *testing.T) {
	src := `def classify(n):
    if n < 0:
        return "negative"
    elif n == 0:
        return "zero"
    for i in range(n):
        while i > 1:
            i -= 1
    return "positive"
`
	report := Analyze(src, types.LangPython)
	assert.Equal(t, 5.0, report.Complexity)
}

func TestAnalyze_MultipleIssuesOneFile(t *testing.T) {
	src := "eval(x)\npickle.loads(y)\nos.system(cmd)\n"
	report := Analyze(src, types.LangPython)
	assert.Equal(t, 3, report.IssueCount())
}

func TestAnalyze_EmptyContent(t *testing.T) {
	report := Analyze("", types.LangPython)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 1.0, report.Complexity)
}
