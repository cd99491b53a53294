package chatview

import (
	"bytes"
	"html"
	"log"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// BlockKind classifies one rendered line group.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading1
	BlockHeading2
	BlockCode
	BlockBullet
)

// SpanKind classifies inline text.
type SpanKind int

const (
	SpanText SpanKind = iota
	SpanBold
	SpanItalic
	SpanCode
)

// Span is a run of inline text.
type Span struct {
	Kind SpanKind
	Text string
}

// Block is one line of output, or several lines for fenced code.
type Block struct {
	Kind  BlockKind
	Spans []Span
	Code  string
}

var inlinePattern = regexp.MustCompile("\\*\\*.+?\\*\\*|\\*.+?\\*|`.+?`")

// Parse splits markdown into blocks, one line at a time. The whole text is
// parsed on every call; streaming callers re-parse the accumulated message.
func Parse(markdown string) []Block {
	var (
		blocks  []Block
		fenced  bool
		fenceAt int
	)

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if fenced {
				fenced = false
				continue
			}
			fenced = true
			fenceAt = len(blocks)
			blocks = append(blocks, Block{Kind: BlockCode})
			continue
		}
		if fenced {
			block := &blocks[fenceAt]
			if block.Code != "" {
				block.Code += "\n"
			}
			block.Code += line
			continue
		}

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, Block{Kind: BlockHeading2, Spans: []Span{{Kind: SpanText, Text: line[3:]}}})
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, Block{Kind: BlockHeading1, Spans: []Span{{Kind: SpanText, Text: line[2:]}}})
		case strings.HasPrefix(line, "`") && isCodeLine(trimmed):
			code := strings.TrimSpace(strings.Trim(trimmed, "`"))
			if code != "" {
				blocks = append(blocks, Block{Kind: BlockCode, Code: code})
			}
		case strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "- "):
			blocks = append(blocks, Block{Kind: BlockBullet, Spans: parseSpans(strings.TrimSpace(trimmed[2:]))})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Spans: parseSpans(line)})
		}
	}

	return blocks
}

// isCodeLine reports whether a backtick-led line is code as a whole rather
// than a paragraph that merely starts with an inline code span.
func isCodeLine(line string) bool {
	if strings.HasPrefix(line, "``") {
		return true
	}
	return len(line) > 1 && strings.HasSuffix(line, "`") && strings.Count(line, "`") == 2
}

func parseSpans(line string) []Span {
	var spans []Span
	last := 0
	for _, loc := range inlinePattern.FindAllStringIndex(line, -1) {
		if loc[0] > last {
			spans = append(spans, Span{Kind: SpanText, Text: line[last:loc[0]]})
		}
		part := line[loc[0]:loc[1]]
		switch {
		case strings.HasPrefix(part, "**"):
			spans = append(spans, Span{Kind: SpanBold, Text: part[2 : len(part)-2]})
		case strings.HasPrefix(part, "`"):
			spans = append(spans, Span{Kind: SpanCode, Text: part[1 : len(part)-1]})
		default:
			spans = append(spans, Span{Kind: SpanItalic, Text: part[1 : len(part)-1]})
		}
		last = loc[1]
	}
	if last < len(line) {
		spans = append(spans, Span{Kind: SpanText, Text: line[last:]})
	}
	return spans
}

// Renderer turns assistant markdown into safe HTML.
type Renderer interface {
	RenderHTML(markdown string) string
}

// NewRenderer returns the goldmark renderer for mode "goldmark" and the
// line renderer otherwise.
func NewRenderer(mode string) Renderer {
	if mode == "goldmark" {
		return NewGoldmarkRenderer()
	}
	return NewLineRenderer()
}

// LineRenderer renders the blocks produced by Parse.
type LineRenderer struct {
	policy *bluemonday.Policy
}

// NewLineRenderer creates a LineRenderer with the UGC sanitizer policy.
func NewLineRenderer() *LineRenderer {
	return &LineRenderer{policy: bluemonday.UGCPolicy()}
}

// RenderHTML implements Renderer.
func (r *LineRenderer) RenderHTML(markdown string) string {
	var b strings.Builder
	inList := false

	for _, block := range Parse(markdown) {
		if block.Kind != BlockBullet && inList {
			b.WriteString("</ul>")
			inList = false
		}

		switch block.Kind {
		case BlockHeading1:
			b.WriteString("<h1>" + spansHTML(block.Spans) + "</h1>")
		case BlockHeading2:
			b.WriteString("<h2>" + spansHTML(block.Spans) + "</h2>")
		case BlockCode:
			b.WriteString("<pre><code>" + html.EscapeString(block.Code) + "</code></pre>")
		case BlockBullet:
			if !inList {
				b.WriteString("<ul>")
				inList = true
			}
			b.WriteString("<li>" + spansHTML(block.Spans) + "</li>")
		default:
			b.WriteString("<p>" + spansHTML(block.Spans) + "</p>")
		}
	}
	if inList {
		b.WriteString("</ul>")
	}

	return r.policy.Sanitize(b.String())
}

func spansHTML(spans []Span) string {
	var b strings.Builder
	for _, span := range spans {
		text := html.EscapeString(span.Text)
		switch span.Kind {
		case SpanBold:
			b.WriteString("<strong>" + text + "</strong>")
		case SpanItalic:
			b.WriteString("<em>" + text + "</em>")
		case SpanCode:
			b.WriteString("<code>" + text + "</code>")
		default:
			b.WriteString(text)
		}
	}
	return b.String()
}

// GoldmarkRenderer uses a full CommonMark implementation.
type GoldmarkRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewGoldmarkRenderer creates a GoldmarkRenderer.
func NewGoldmarkRenderer() *GoldmarkRenderer {
	return &GoldmarkRenderer{md: goldmark.New(), policy: bluemonday.UGCPolicy()}
}

// RenderHTML implements Renderer. Conversion errors fall back to escaped text.
func (r *GoldmarkRenderer) RenderHTML(markdown string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		log.Printf("[chatview] markdown conversion failed: %v", err)
		return "<p>" + html.EscapeString(markdown) + "</p>"
	}
	return string(r.policy.SanitizeBytes(buf.Bytes()))
}

// PlainText renders markdown for terminals.
func PlainText(markdown string) string {
	var b strings.Builder
	for _, block := range Parse(markdown) {
		switch block.Kind {
		case BlockHeading1, BlockHeading2:
			title := spansText(block.Spans)
			underline := "="
			if block.Kind == BlockHeading2 {
				underline = "-"
			}
			b.WriteString(title + "\n" + strings.Repeat(underline, len([]rune(title))) + "\n")
		case BlockCode:
			for _, line := range strings.Split(block.Code, "\n") {
				b.WriteString("    " + line + "\n")
			}
		case BlockBullet:
			b.WriteString("  • " + spansText(block.Spans) + "\n")
		default:
			b.WriteString(spansText(block.Spans) + "\n")
		}
	}
	return b.String()
}

func spansText(spans []Span) string {
	var b strings.Builder
	for _, span := range spans {
		b.WriteString(span.Text)
	}
	return b.String()
}
