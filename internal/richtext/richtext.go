// Package richtext converts between Markdown and the editor document format
// stored as TaskHub documentation, and renders Markdown for the terminal
// with glamour.
package richtext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Block types understood by the editor.
const (
	BlockParagraph   = "paragraph"
	BlockHeading     = "heading"
	BlockBulletList  = "bulletList"
	BlockOrderedList = "orderedList"
	BlockCode        = "codeBlock"
	BlockQuote       = "blockquote"
	BlockRule        = "horizontalRule"
)

// Document is a serialized editor state.
type Document struct {
	Type    string  `json:"type"`
	Content []Block `json:"content"`
}

// Block is one top-level element of a Document.
type Block struct {
	Type     string   `json:"type"`
	Level    int      `json:"level,omitempty"`
	Text     string   `json:"text,omitempty"`
	Items    []string `json:"items,omitempty"`
	Language string   `json:"language,omitempty"`
}

// Empty returns a document with no blocks.
func Empty() Document {
	return Document{Type: "doc", Content: []Block{}}
}

// IsEmpty reports whether d has no blocks.
func (d Document) IsEmpty() bool { return len(d.Content) == 0 }

// Parse decodes stored documentation content. A missing or null value is
// an empty document.
func Parse(raw json.RawMessage) (Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Empty(), nil
	}
	var d Document
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return Document{}, fmt.Errorf("documentation content: %w", err)
	}
	if d.Type != "doc" {
		return Document{}, fmt.Errorf("documentation content: unexpected type %q", d.Type)
	}
	if d.Content == nil {
		d.Content = []Block{}
	}
	return d, nil
}

// JSON encodes d for storage.
func (d Document) JSON() json.RawMessage {
	if d.Type == "" {
		d.Type = "doc"
	}
	if d.Content == nil {
		d.Content = []Block{}
	}
	b, _ := json.Marshal(d)
	return b
}

var (
	bulletRE  = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	orderedRE = regexp.MustCompile(`^\s*\d+\.\s+(.*)$`)
	headingRE = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
)

// FromMarkdown parses Markdown into a Document. Inline markup is kept
// verbatim inside block text.
func FromMarkdown(md string) Document {
	md = strings.ReplaceAll(md, "\r\n", "\n")
	md = strings.ReplaceAll(md, "\r", "\n")

	doc := Empty()
	var (
		para     []string
		list     *Block
		code     *Block
		codeBody []string
	)
	flushPara := func() {
		if len(para) > 0 {
			doc.Content = append(doc.Content, Block{Type: BlockParagraph, Text: strings.Join(para, "\n")})
			para = nil
		}
	}
	flushList := func() {
		if list != nil {
			doc.Content = append(doc.Content, *list)
			list = nil
		}
	}
	addItem := func(kind, item string) {
		flushPara()
		if list == nil || list.Type != kind {
			flushList()
			list = &Block{Type: kind}
		}
		list.Items = append(list.Items, item)
	}

	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "```") {
			if code != nil {
				code.Text = strings.Join(codeBody, "\n")
				doc.Content = append(doc.Content, *code)
				code, codeBody = nil, nil
			} else {
				flushPara()
				flushList()
				code = &Block{Type: BlockCode, Language: strings.TrimSpace(strings.TrimPrefix(line, "```"))}
			}
			continue
		}
		if code != nil {
			codeBody = append(codeBody, line)
			continue
		}

		if m := bulletRE.FindStringSubmatch(line); m != nil && !isRule(line) {
			addItem(BlockBulletList, m[1])
			continue
		}
		if m := orderedRE.FindStringSubmatch(line); m != nil {
			addItem(BlockOrderedList, m[1])
			continue
		}
		flushList()

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
		case headingRE.MatchString(line):
			flushPara()
			m := headingRE.FindStringSubmatch(line)
			doc.Content = append(doc.Content, Block{Type: BlockHeading, Level: len(m[1]), Text: strings.TrimSpace(m[2])})
		case strings.HasPrefix(trimmed, ">"):
			flushPara()
			doc.Content = append(doc.Content, Block{Type: BlockQuote, Text: strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))})
		case isRule(line):
			flushPara()
			doc.Content = append(doc.Content, Block{Type: BlockRule})
		default:
			para = append(para, trimmed)
		}
	}

	// An unclosed fence keeps its body.
	if code != nil {
		code.Text = strings.Join(codeBody, "\n")
		doc.Content = append(doc.Content, *code)
	}
	flushList()
	flushPara()
	return doc
}

func isRule(line string) bool {
	t := strings.ReplaceAll(strings.TrimSpace(line), " ", "")
	return len(t) >= 3 && (allChars(t, '-') || allChars(t, '*') || allChars(t, '_'))
}

func allChars(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}

// Markdown renders d back to Markdown. Unknown block types keep their text
// as a paragraph.
func (d Document) Markdown() string {
	parts := make([]string, 0, len(d.Content))
	for _, b := range d.Content {
		switch b.Type {
		case BlockHeading:
			level := min(max(b.Level, 1), 6)
			parts = append(parts, strings.Repeat("#", level)+" "+b.Text)
		case BlockBulletList:
			items := make([]string, len(b.Items))
			for i, it := range b.Items {
				items[i] = "- " + it
			}
			parts = append(parts, strings.Join(items, "\n"))
		case BlockOrderedList:
			items := make([]string, len(b.Items))
			for i, it := range b.Items {
				items[i] = strconv.Itoa(i+1) + ". " + it
			}
			parts = append(parts, strings.Join(items, "\n"))
		case BlockCode:
			parts = append(parts, "```"+b.Language+"\n"+b.Text+"\n```")
		case BlockQuote:
			parts = append(parts, "> "+b.Text)
		case BlockRule:
			parts = append(parts, "---")
		default:
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

// RenderMarkdownWithWidth renders Markdown for terminal display with a custom width.
func RenderMarkdownWithWidth(md string, width int) (string, error) {
	if md == "" {
		return "", nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}

	out, err := r.Render(md)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}
