package types

import (
	"path/filepath"
	"strings"
)

// Language identifies the programming language of a source file.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangRuby       Language = "ruby"
	LangShell      Language = "shell"
	LangSQL        Language = "sql"
	LangMarkdown   Language = "markdown"
	LangUnknown    Language = "unknown"
)

var languageExtensions = map[string]Language{
	".go":   LangGo,
	".py":   LangPython,
	".pyw":  LangPython,
	".js":   LangJavaScript,
	".mjs":  LangJavaScript,
	".jsx":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".rs":   LangRust,
	".java": LangJava,
	".c":    LangC,
	".h":    LangC,
	".cpp":  LangCPP,
	".cc":   LangCPP,
	".hpp":  LangCPP,
	".rb":   LangRuby,
	".sh":   LangShell,
	".bash": LangShell,
	".sql":  LangSQL,
	".md":   LangMarkdown,
}

// DetectLanguage detects the programming language from a filename.
func DetectLanguage(filename string) Language {
	ext := strings.ToLower(filepath.Ext(filename))
	if lang, ok := languageExtensions[ext]; ok {
		return lang
	}
	base := strings.ToLower(filepath.Base(filename))
	switch {
	case base == "makefile" || base == "gnumakefile":
		return LangShell
	case base == "dockerfile" || strings.HasPrefix(base, "dockerfile."):
		return LangShell
	}
	return LangUnknown
}
