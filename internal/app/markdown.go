package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"

	"flowdeck/internal/activity"
	"flowdeck/internal/types"
)

var (
	rendererMu       sync.Mutex
	renderersByWidth = map[int]*glamour.TermRenderer{}
)

func renderMarkdown(input string, width int) string {
	input = strings.TrimRight(input, "\n")
	if input == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	r := getRenderer(width)
	if r == nil {
		return input
	}
	out, err := r.Render(input)
	if err != nil {
		return input
	}
	out = strings.TrimRight(out, "\n")
	out = xansi.Hardwrap(out, width, true)
	return strings.TrimRight(out, "\n")
}

func getRenderer(width int) *glamour.TermRenderer {
	rendererMu.Lock()
	defer rendererMu.Unlock()
	if renderer, ok := renderersByWidth[width]; ok && renderer != nil {
		return renderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(buildStyleConfig()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	renderersByWidth[width] = r
	return r
}

func buildStyleConfig() glamouransi.StyleConfig {
	base := styles.DarkStyleConfig
	base.Document.StylePrimitive.BlockPrefix = ""
	base.Document.StylePrimitive.BlockSuffix = ""
	zero := uint(0)
	base.Document.Margin = &zero
	return base
}

func detailsMarkdown(details activity.Details) string {
	var b strings.Builder
	name := cleanText(details.ActivityName, false)
	if name == "" {
		name = "(unnamed activity)"
	}
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(name))
	if key := cleanText(details.ActivityKey, false); key != "" && key != name {
		fmt.Fprintf(&b, "- **Key:** `%s`\n", key)
	}
	fmt.Fprintf(&b, "- **ID:** `%s`\n", cleanText(details.ID, false))
	if details.StartedTime != "" {
		fmt.Fprintf(&b, "- **Started:** %s\n", cleanText(details.StartedTime, false))
	}
	if details.EndedTime != "" {
		fmt.Fprintf(&b, "- **Ended:** %s\n", cleanText(details.EndedTime, false))
	}
	writePayloadSection(&b, "Inputs", details.Inputs)
	writePayloadSection(&b, "Result", details.Result)
	return b.String()
}

func writePayloadSection(b *strings.Builder, title string, payload activity.Payload) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
	if payload.Empty() {
		b.WriteString("_none_\n")
		return
	}
	lang := ""
	if payload.Parsed {
		lang = "json"
	}
	fence := "```"
	body := cleanText(payload.Pretty(), true)
	for strings.Contains(body, fence) {
		fence += "`"
	}
	fmt.Fprintf(b, "%s%s\n%s\n%s\n", fence, lang, body, fence)
}

func documentsMarkdown(kind types.DocumentKind, activityKey string, docs []types.Document) string {
	var b strings.Builder
	label := "Knowledge"
	if kind == types.DocumentKindInstruction {
		label = "Instructions"
	}
	fmt.Fprintf(&b, "# %s for %s\n\n", label, escapeMarkdown(cleanText(activityKey, false)))
	if len(docs) == 0 {
		fmt.Fprintf(&b, "_No %s linked to this activity._\n", strings.ToLower(label))
		return b.String()
	}
	for _, doc := range docs {
		title := cleanText(doc.Title, false)
		if title == "" {
			title = doc.ID
		}
		fmt.Fprintf(&b, "## %s\n\n", escapeMarkdown(title))
		if content := strings.TrimSpace(cleanText(doc.Content, true)); content != "" {
			b.WriteString(content)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer("`", "\\`", "*", "\\*", "_", "\\_", "#", "\\#")
	return replacer.Replace(text)
}
