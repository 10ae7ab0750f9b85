package sheetcodec

import (
	"regexp"
	"strings"

	"github.com/fieldday/eventsync/internal/types"
)

// Sub-tasks travel through the sheet as one delimited cell. Each entry
// follows the grammar "Title: Owner (Status)"; owner and status are both
// optional. Entries are separated by pipes, newlines, or leading
// bullets. Annotations are app-only and never appear in the cell.

var subTaskEntry = regexp.MustCompile(`^(.+?)(?::\s*([^(]*?))?\s*(?:\(([^)]*)\))?$`)

// ParseSubTasks splits a sub-task cell into its entries. Unparseable
// fragments degrade to title-only tasks; empty fragments are dropped.
func ParseSubTasks(cell string) []types.SubTask {
	if strings.TrimSpace(cell) == "" {
		return nil
	}

	splitter := regexp.MustCompile(`[|\n]`)
	var tasks []types.SubTask
	for _, frag := range splitter.Split(cell, -1) {
		frag = strings.TrimSpace(frag)
		frag = strings.TrimLeft(frag, "•-* ")
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}

		m := subTaskEntry.FindStringSubmatch(frag)
		if m == nil {
			tasks = append(tasks, types.SubTask{Title: frag})
			continue
		}
		tasks = append(tasks, types.SubTask{
			Title:  strings.TrimSpace(m[1]),
			Owner:  strings.TrimSpace(m[2]),
			Status: strings.TrimSpace(m[3]),
		})
	}
	return tasks
}

// FormatSubTasks renders sub-tasks back into the pipe-delimited cell
// form. It is the inverse of ParseSubTasks for well-formed entries.
func FormatSubTasks(tasks []types.SubTask) string {
	if len(tasks) == 0 {
		return ""
	}

	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		var b strings.Builder
		b.WriteString(t.Title)
		if t.Owner != "" {
			b.WriteString(": ")
			b.WriteString(t.Owner)
		}
		if t.Status != "" {
			b.WriteString(" (")
			b.WriteString(t.Status)
			b.WriteString(")")
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " | ")
}
