package chat

import (
	"slices"
	"strings"
	"time"

	"github.com/malonaz/popchat/internal/cli"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/internal/markdown"
	"github.com/malonaz/popchat/internal/session"
	"github.com/malonaz/popchat/store"
)

// printMessage prints a user message as is and renders an assistant message.
func printMessage(renderer *markdown.Renderer, index int, message *llm.Message) {
	if message.Role == llm.UserRole {
		cli.UserInput("> %s\n", message.TextContent())
		for _, part := range message.Parts {
			if part.Type == llm.ImagePartType {
				cli.FileInfo("[image %s]\n", part.MimeType)
			}
		}
		return
	}
	text := message.TextContent()
	if strings.HasPrefix(text, session.ErrorPrefix) {
		cli.Error("%s\n", text)
		return
	}
	cli.AIOutput("%s", renderer.Render(index, text)+"\n")
}

// printMetadata prints one line per conversation, most recent first. The active one is
// marked.
func printMetadata(metadata []*store.Metadata, activeID string) {
	metadata = slices.Clone(metadata)
	store.SortByRecency(metadata)
	for _, m := range metadata {
		marker := " "
		if m.ID == activeID {
			marker = "*"
		}
		cli.Info("%s %s  %-8s  %s  ", marker, m.ID, m.Provider, m.UpdateTime().Format(time.DateTime))
		cli.UserInput("%s\n", m.Title)
	}
}
