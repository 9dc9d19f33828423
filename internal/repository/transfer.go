package repository

import (
	"regexp"
	"strings"

	"github.com/sakif/snippet-picker/internal/model"
)

// blockSeparator matches one or more blank lines (lines holding only
// whitespace count as blank).
var blockSeparator = regexp.MustCompile(`\n\s*\n`)

// ParsedBlock is one snippet read from import text.
type ParsedBlock struct {
	Name    string
	Content string
}

// ParseImport splits free text into snippets.
//
// FORMAT:
//
//	Greeting
//	Hello there,
//	nice to meet you.
//
//	Sign-off
//	Regards
//
// Blocks are separated by blank lines. The first line of a block is the name,
// the remaining lines (joined with "\n" and trimmed) are the content. A block
// without both a name and content is counted in invalid and skipped.
func ParseImport(text string) (blocks []ParsedBlock, invalid int) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil, 0
	}

	for _, raw := range blockSeparator.Split(text, -1) {
		lines := strings.Split(strings.TrimSpace(raw), "\n")
		if len(lines) < 2 {
			invalid++
			continue
		}
		name := strings.TrimSpace(lines[0])
		content := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		if name == "" || content == "" {
			invalid++
			continue
		}
		blocks = append(blocks, ParsedBlock{Name: name, Content: content})
	}
	return blocks, invalid
}

// FormatExport renders snippets in the import format: "name\ncontent\n\n"
// for each snippet, in order.
func FormatExport(snippets []model.Snippet) string {
	var b strings.Builder
	for _, s := range snippets {
		b.WriteString(s.Name)
		b.WriteByte('\n')
		b.WriteString(s.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// fileNameUnsafe maps path separators in a mode name to "_" so the name
// stays one path element.
var fileNameUnsafe = strings.NewReplacer("/", "_", `\`, "_")

// ExportFileName returns the download name for an export. A mode export
// embeds the mode name; exporting everything uses a fixed name.
func ExportFileName(modeName string, all bool) string {
	if all {
		return "prompts_export.txt"
	}
	return "prompts_" + fileNameUnsafe.Replace(modeName) + "_export.txt"
}
