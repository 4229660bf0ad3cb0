package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/buger/goterm"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/pkg/errors"
)

// HistoryFile of the prompt.
const HistoryFile = "/tmp/popchat.history"

var (
	// Colors for different types of output
	userInputColor   = color.New(color.FgWhite)               // White for user input
	userCommandColor = color.New(color.FgGreen)               // Green for user commands
	aiOutputColor    = color.New(color.FgCyan)                // Cyan for AI responses
	errorColor       = color.New(color.FgHiRed)               // Bright red for errors
	titleColor       = color.New(color.FgMagenta, color.Bold) // Bold magenta for titles
	separatorColor   = color.New(color.FgHiBlack)             // Dark grey for separators
	fileColor        = color.New(color.FgRed)                 // Red for file operations
	infoColor        = color.New(color.FgYellow)              // Yellow for metadata
	promptColor      = color.New(color.FgHiBlue)              // Bright blue for prompts

	width = goterm.Width()
)

// Width of the terminal.
func Width() int {
	if width <= 0 {
		return 80
	}
	return width
}

// Separator printed to cli.
func Separator() {
	separator := strings.Repeat("-", Width())
	separatorColor.Println(separator)
}

// Title printed to cli.
func Title(text string, args ...any) {
	title := "      " + fmt.Sprintf(text, args...) + "      "
	titleWidth := len([]rune(title))
	leftWidth := max((Width()-titleWidth)/2, 0)
	separator1 := strings.Repeat("-", leftWidth)
	separator2 := strings.Repeat("-", max(Width()-titleWidth-leftWidth, 0))
	output := fmt.Sprintf("%s%s%s", separator1, title, separator2)
	titleColor.Println(output)
}

// UserInput printed to cli.
func UserInput(text string, args ...any) {
	if len(args) == 0 {
		userInputColor.Print(text)
		return
	}
	userInputColor.Printf(text, args...)
}

// UserCommand printed to cli.
func UserCommand(text string, args ...any) {
	if len(args) == 0 {
		userCommandColor.Print(text)
		return
	}
	userCommandColor.Printf(text, args...)
}

// AIOutput printed to cli.
func AIOutput(text string, args ...any) {
	if len(args) == 0 {
		aiOutputColor.Print(text)
		return
	}
	aiOutputColor.Printf(text, args...)
}

// Error printed to cli.
func Error(text string, args ...any) {
	errorColor.Printf(text, args...)
}

// Info printed to cli.
func Info(text string, args ...any) {
	infoColor.Printf(text, args...)
}

// FileInfo printed to cli.
func FileInfo(text string, args ...any) {
	fileColor.Printf(text, args...)
}

// PromptUser for input. Enter starts a new line, Ctrl+J sends.
func PromptUser() (string, error) {
	exit := false
	config := &readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		HistoryFile:       HistoryFile,
		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			if r == '\x0A' { // Ctrl + J
				exit = true
			}
			return r, true
		},
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return "", errors.Wrap(err, "creating prompt")
	}
	defer rl.Close()
	var lines []string
	for {
		line, err := rl.Readline()
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
		// Commands are single line.
		if exit || (len(lines) == 1 && strings.HasPrefix(line, "/")) {
			break
		}
		rl.SetPrompt("")
	}
	return strings.Join(lines, "\n"), nil
}

// QueryUser a yes/no question.
func QueryUser(question string) bool {
	surveyQuestion := &survey.Confirm{
		Message: question,
	}
	confirm := false
	survey.AskOne(surveyQuestion, &confirm)
	return confirm
}

// SelectOption asks the user to pick one of the options and returns its index.
func SelectOption(message string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("nothing to select")
	}
	surveyQuestion := &survey.Select{
		Message:  message,
		Options:  options,
		PageSize: 15,
	}
	index := -1
	if err := survey.AskOne(surveyQuestion, &index); err != nil {
		return -1, errors.Wrap(err, "selecting option")
	}
	return index, nil
}

// MaskSecret hides all but the last 4 characters of a secret.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	runes := []rune(secret)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
