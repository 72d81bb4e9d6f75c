// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// =============================================================================
// MARKDOWN AND CODE HIGHLIGHTING
// =============================================================================

var (
	fencePattern      = regexp.MustCompile("(?s)```([^\\s`]*)\\n(.*?)```")
	inlineCodePattern = regexp.MustCompile("`([^`\n]+)`")
	boldPattern       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	italicPattern     = regexp.MustCompile(`\*([^*\n]+)\*`)
	strikePattern     = regexp.MustCompile(`~~([^~\n]+)~~`)
	linkPattern       = regexp.MustCompile(`https?://[^\s]+`)
)

// markdownRenderer applies lightweight markdown to single chat messages
// and full glamour rendering to multi-line documents.
type markdownRenderer struct {
	theme      string
	inlineCode lipgloss.Style
	rule       lipgloss.Style

	glam *glamour.TermRenderer
}

func newMarkdownRenderer(theme string, backticksBG int, rule lipgloss.Style) *markdownRenderer {
	r := &markdownRenderer{
		theme:      theme,
		inlineCode: lipgloss.NewStyle().Background(lipgloss.Color(fmt.Sprintf("%d", backticksBG))),
		rule:       rule,
	}

	doc, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth()),
	)
	if err == nil {
		r.glam = doc
	}
	return r
}

// wrapWidth picks the document word-wrap width from the terminal,
// defaulting to 80 and never dropping below 40.
func wrapWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	if width < 40 {
		return 40
	}
	return width
}

// inline formats one chat message: fenced code blocks are syntax
// highlighted, inline code gets a background, and emphasis markers turn
// into their terminal attributes.
func (r *markdownRenderer) inline(text string, base lipgloss.Style) string {
	text = fencePattern.ReplaceAllStringFunc(text, func(block string) string {
		m := fencePattern.FindStringSubmatch(block)
		lang, code := m[1], strings.TrimRight(m[2], "\n")
		highlighted, name := r.highlight(code, lang)
		return "\n" + r.rule.Render(fmt.Sprintf("--- %s ---", name)) + "\n" +
			highlighted + "\n" + r.rule.Render("------")
	})

	text = inlineCodePattern.ReplaceAllStringFunc(text, func(m string) string {
		inner := m[1 : len(m)-1]
		return r.inlineCode.Render(" " + inner + " ")
	})

	bold := lipgloss.NewStyle().Bold(true)
	italic := lipgloss.NewStyle().Italic(true)
	strike := lipgloss.NewStyle().Strikethrough(true)
	underline := lipgloss.NewStyle().Underline(true)

	text = boldPattern.ReplaceAllStringFunc(text, func(m string) string {
		return bold.Render(m[2 : len(m)-2])
	})
	text = italicPattern.ReplaceAllStringFunc(text, func(m string) string {
		return italic.Render(m[1 : len(m)-1])
	})
	text = strikePattern.ReplaceAllStringFunc(text, func(m string) string {
		return strike.Render(m[2 : len(m)-2])
	})
	text = linkPattern.ReplaceAllStringFunc(text, func(m string) string {
		return underline.Render(m)
	})

	return text
}

// highlight runs code through chroma, guessing the language when no
// fence tag was given. Returns the highlighted code and the lexer name
// used for the frame label.
func (r *markdownRenderer) highlight(code, lang string) (string, string) {
	lexer := lexers.Get(lang)
	guessed := false
	if lexer == nil {
		lexer = lexers.Analyse(code)
		guessed = true
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	name := strings.ToLower(lexer.Config().Name)
	if guessed {
		name += " (guessed)"
	}

	style := chromaStyles.Get(r.theme)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, name
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code, name
	}
	return strings.TrimRight(buf.String(), "\n"), name
}

// HighlightThemes lists the available syntax highlight theme names,
// usable as the highlight_theme option.
func HighlightThemes() []string {
	return chromaStyles.Names()
}

// document renders a full markdown document with glamour.
func (r *markdownRenderer) document(md string) string {
	if r.glam == nil {
		return md
	}
	out, err := r.glam.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
