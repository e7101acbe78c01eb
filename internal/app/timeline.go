package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"flowdeck/internal/activity"
)

const (
	minNameWidth = 12
	maxNameWidth = 40
	timeColumn   = 8
	durationCol  = 8
)

// renderTimeline formats entries as one row each. The row at cursor is
// drawn selected; the highlighted entry gets a badge.
func renderTimeline(entries []activity.Entry, cursor, width int) []string {
	if len(entries) == 0 {
		return nil
	}
	indexWidth := len(strconv.Itoa(len(entries)))
	nameWidth := timelineNameWidth(width, indexWidth)
	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		lines = append(lines, renderTimelineRow(entry, i == cursor, indexWidth, nameWidth, width))
	}
	return lines
}

func timelineNameWidth(width, indexWidth int) int {
	// marker, index, time, duration, badge and the gaps between them
	fixed := 2 + indexWidth + 2 + timeColumn + 2 + 2 + durationCol + 6
	nameWidth := width - fixed
	if nameWidth < minNameWidth {
		return minNameWidth
	}
	if nameWidth > maxNameWidth {
		return maxNameWidth
	}
	return nameWidth
}

func renderTimelineRow(entry activity.Entry, selected bool, indexWidth, nameWidth, width int) string {
	marker := "  "
	if selected {
		marker = "▸ "
	}
	index := fmt.Sprintf("%*d", indexWidth, entry.Index)
	started := formatClock(entry.StartedAt)
	name := fitColumn(entryLabel(entry), nameWidth)
	duration := fitColumn(formatDuration(entry), durationCol)

	if selected {
		plain := marker + index + "  " + started + "  " + name + "  " + duration
		line := selectedStyle.Render(plain)
		if entry.Highlighted {
			line += " " + freshBadgeStyle.Render(" new ")
		}
		return truncateToWidth(line, width)
	}
	nameCell := name
	if entry.Highlighted {
		nameCell = freshStyle.Render(name)
	}
	line := marker + indexStyle.Render(index) + "  " + timeStyle.Render(started) + "  " + nameCell + "  " + durationStyle.Render(duration)
	if entry.Highlighted {
		line += " " + freshBadgeStyle.Render(" new ")
	}
	return truncateToWidth(line, width)
}

func entryLabel(entry activity.Entry) string {
	name := cleanText(entry.Record.ActivityName, false)
	if name == "" {
		name = "(unnamed)"
	}
	key := cleanText(entry.Record.ActivityID, false)
	if key != "" && key != name {
		name += " [" + key + "]"
	}
	return name
}

func formatClock(at time.Time) string {
	if at.IsZero() {
		return strings.Repeat("-", timeColumn)
	}
	return at.Format("15:04:05")
}

func formatDuration(entry activity.Entry) string {
	if entry.StartedAt.IsZero() {
		return ""
	}
	ended := activity.ParseStartedTime(entry.Record.EndedTime)
	if ended.IsZero() || ended.Before(entry.StartedAt) {
		return ""
	}
	d := ended.Sub(entry.StartedAt)
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// cursorForID returns the position of id in entries, or fallback clamped to
// the list.
func cursorForID(entries []activity.Entry, id string, fallback int) int {
	if id != "" {
		for i, entry := range entries {
			if entry.Record.ID == id {
				return i
			}
		}
	}
	if fallback >= len(entries) {
		fallback = len(entries) - 1
	}
	if fallback < 0 {
		return 0
	}
	return fallback
}
