// Package export turns conversations and messages into documents, files and clipboard text.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/atotto/clipboard"
	"github.com/pkg/errors"

	"github.com/malonaz/popchat/internal/file"
	"github.com/malonaz/popchat/internal/llm"
	"github.com/malonaz/popchat/internal/markdown"
	"github.com/malonaz/popchat/store"
)

const conversationTemplate = `# {{ .Title }}

_{{ .Provider }} · updated {{ dateInZone "2006-01-02 15:04 MST" .UpdateTime "UTC" }} · {{ len .Messages }} messages_
{{ range .Messages }}
## {{ if eq .Role "user" }}You{{ else }}Assistant{{ end }}

{{ text . | trim }}
{{- range images . }}

![image]({{ . }})
{{- end }}
{{ end -}}
`

var documentTemplate = template.Must(template.New("conversation").Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
	"text":   func(message *llm.Message) string { return message.TextContent() },
	"images": imageURIs,
}).Parse(conversationTemplate))

type document struct {
	*store.Conversation
}

func (d *document) UpdateTime() time.Time {
	return d.Conversation.Metadata().UpdateTime()
}

func imageURIs(message *llm.Message) []string {
	var uris []string
	for _, part := range message.Parts {
		if part.Type == llm.ImagePartType {
			uris = append(uris, fmt.Sprintf("data:%s;base64,%s", part.MimeType, part.Data))
		}
	}
	return uris
}

// Markdown renders a conversation as a markdown document.
func Markdown(conversation *store.Conversation) (string, error) {
	var sb strings.Builder
	if err := documentTemplate.Execute(&sb, &document{Conversation: conversation}); err != nil {
		return "", errors.Wrap(err, "executing conversation template")
	}
	return sb.String(), nil
}

// WriteMarkdown writes a conversation as a markdown document at path.
func WriteMarkdown(conversation *store.Conversation, path string, overwrite bool) error {
	document, err := Markdown(conversation)
	if err != nil {
		return err
	}
	path, err = file.ExpandPath(path)
	if err != nil {
		return err
	}
	return file.WriteFile(path, []byte(document), overwrite)
}

// CopyText copies the text of a message to the clipboard. Text parts are joined by a
// space and images are skipped.
func CopyText(message *llm.Message) error {
	if err := clipboard.WriteAll(message.TextContent()); err != nil {
		return errors.Wrap(err, "writing to clipboard")
	}
	return nil
}

// WriteCodeBlocks writes every code block of a message in directory and returns the paths
// written. Files are named <prefix>_<n>.<extension>.
func WriteCodeBlocks(message *llm.Message, directory, prefix string) ([]string, error) {
	directory, err := file.ExpandPath(directory)
	if err != nil {
		return nil, err
	}
	var paths []string
	for i, codeBlock := range markdown.CodeBlocks(message.TextContent()) {
		path := filepath.Join(directory, fmt.Sprintf("%s_%d.%s", prefix, i+1, codeBlock.Extension()))
		if err := file.WriteFile(path, []byte(codeBlock.Content()+"\n"), true); err != nil {
			return paths, errors.Wrapf(err, "writing code block %d", i+1)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
