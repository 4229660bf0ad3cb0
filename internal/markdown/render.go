package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// Renderer renders markdown for the terminal, with syntax highlighting.
type Renderer struct {
	glamour *glamour.TermRenderer
	width   int
	// Rendered messages, by index in their conversation.
	cache map[int]string
}

// NewRenderer creates a new markdown renderer.
func NewRenderer(width int) (*Renderer, error) {
	gr, err := glamour.NewTermRenderer(
		glamour.WithStyles(customStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		glamour: gr,
		width:   width,
		cache:   map[int]string{},
	}, nil
}

// Render markdown content. The index is used for caching, use -1 to skip the cache.
func (r *Renderer) Render(messageIndex int, content string) string {
	if md, ok := r.cache[messageIndex]; ok {
		return md
	}

	blocks := ParseBlocks(content)
	var sb strings.Builder
	for i, block := range blocks {
		sb.WriteString(r.renderBlock(block.Markdown()))
		if i < len(blocks)-1 {
			sb.WriteString("\n\n")
		}
	}

	result := sb.String()
	if messageIndex >= 0 {
		r.cache[messageIndex] = result
	}
	return result
}

// Reset the cache, the indices of a new conversation refer to other messages.
func (r *Renderer) Reset() {
	r.cache = map[int]string{}
}

// SetWidth updates the renderer width, recreating internals if needed.
func (r *Renderer) SetWidth(width int) error {
	if r.width == width {
		return nil
	}
	newRenderer, err := NewRenderer(width)
	if err != nil {
		return err
	}
	*r = *newRenderer
	return nil
}

// renderBlock renders a single block of markdown content. Content that fails to render
// is returned as is.
func (r *Renderer) renderBlock(content string) string {
	rendered, err := r.glamour.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

// customStyle returns a modified glamour style for cleaner output.
func customStyle() ansi.StyleConfig {
	style := styles.DraculaStyleConfig
	zero := uint(0)
	style.Document.Margin = &zero
	style.CodeBlock.Margin = &zero
	style.CodeBlock.Indent = &zero
	style.CodeBlock.Prefix = ""
	style.CodeBlock.BlockPrefix = ""

	style.Code.Margin = &zero
	style.Code.Indent = &zero
	style.Code.Prefix = ""
	style.Code.Suffix = ""

	style.Paragraph.BlockPrefix = ""
	style.Paragraph.BlockSuffix = ""

	return style
}
