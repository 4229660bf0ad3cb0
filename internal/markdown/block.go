package markdown

import (
	"regexp"
	"strings"
)

var (
	// Regex to match code blocks with capture groups:
	// Group 1: language (optional)
	// Group 2: code content
	codeBlockRegexp = regexp.MustCompile("(?sm)^[ \\t]*```([a-zA-Z0-9_+#.-]*)[^\\n]*\\n(.*?)^[ \\t]*```")

	languageToExtension = map[string]string{
		"bash":       "sh",
		"c++":        "cpp",
		"csharp":     "cs",
		"c#":         "cs",
		"golang":     "go",
		"javascript": "js",
		"js":         "js",
		"jsx":        "jsx",
		"kotlin":     "kt",
		"markdown":   "md",
		"python":     "py",
		"ruby":       "rb",
		"rust":       "rs",
		"shell":      "sh",
		"text":       "txt",
		"plaintext":  "txt",
		"typescript": "ts",
		"yml":        "yaml",
		"zsh":        "sh",
	}
)

// Block represents a parsed content block.
type Block interface {
	// Markdown returns the block as markdown.
	Markdown() string
	// Content returns the block without markup.
	Content() string
	// Extension returns the file extension to save the content with.
	Extension() string
}

// TextBlock represents plain text content.
type TextBlock struct {
	Text string
}

// Markdown implements the Block interface.
func (b *TextBlock) Markdown() string { return b.Text }

// Content implements the Block interface.
func (b *TextBlock) Content() string { return b.Text }

// Extension returns the file extension of a text block.
func (b *TextBlock) Extension() string { return "txt" }

// CodeBlock represents a code block with optional language.
type CodeBlock struct {
	Language string
	Code     string
}

// Markdown returns the code block as markdown.
func (b *CodeBlock) Markdown() string {
	return "```" + b.Language + "\n" + b.Code + "\n```"
}

// Content returns the code.
func (b *CodeBlock) Content() string {
	return b.Code
}

// Extension returns the file extension of a code block.
func (b *CodeBlock) Extension() string {
	language := strings.ToLower(b.Language)
	if language == "" {
		return "txt"
	}
	if extension, ok := languageToExtension[language]; ok {
		return extension
	}
	return language
}

// ParseBlocks parses markdown content into a list of TextBlock and CodeBlock segments.
func ParseBlocks(content string) []Block {
	var result []Block

	matches := codeBlockRegexp.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		if content != "" {
			result = append(result, &TextBlock{Text: content})
		}
		return result
	}

	lastEnd := 0

	for _, match := range matches {
		fullStart, fullEnd := match[0], match[1]
		langStart, langEnd := match[2], match[3]
		codeStart, codeEnd := match[4], match[5]

		// Add plain text before this code block
		if fullStart > lastEnd {
			text := content[lastEnd:fullStart]
			if strings.TrimSpace(text) != "" {
				result = append(result, &TextBlock{Text: text})
			}
		}

		var language string
		if langStart >= 0 && langEnd >= 0 {
			language = content[langStart:langEnd]
		}

		var code string
		if codeStart >= 0 && codeEnd >= 0 {
			code = content[codeStart:codeEnd]
		}

		result = append(result, &CodeBlock{
			Language: language,
			Code:     strings.TrimRight(strings.TrimLeft(code, "\n"), "\n "),
		})

		lastEnd = fullEnd
	}

	// Add any remaining plain text after the last code block
	if lastEnd < len(content) {
		text := content[lastEnd:]
		if strings.TrimSpace(text) != "" {
			result = append(result, &TextBlock{Text: text})
		}
	}

	return result
}

// CodeBlocks returns the code blocks of the given content.
func CodeBlocks(content string) []*CodeBlock {
	var codeBlocks []*CodeBlock
	for _, block := range ParseBlocks(content) {
		if codeBlock, ok := block.(*CodeBlock); ok {
			codeBlocks = append(codeBlocks, codeBlock)
		}
	}
	return codeBlocks
}
