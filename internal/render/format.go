package render

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nhle/planeissues/internal/model"
)

// PriorityEmoji returns the marker shown next to a priority.
func PriorityEmoji(priority model.Priority) string {
	switch model.Priority(strings.ToLower(string(priority))) {
	case model.PriorityUrgent:
		return "🔴"
	case model.PriorityHigh:
		return "🟠"
	case model.PriorityMedium:
		return "🟡"
	case model.PriorityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// PriorityText renders a priority as e.g. "🟠 HIGH".
func PriorityText(priority model.Priority) string {
	name := strings.ToUpper(string(priority))
	if name == "" {
		name = "None"
	}
	return PriorityEmoji(priority) + " " + name
}

// StateEmoji returns the marker for a workflow state group.
func StateEmoji(group model.StateGroup) string {
	switch model.StateGroup(strings.ToLower(string(group))) {
	case model.StateGroupBacklog:
		return "📋"
	case model.StateGroupUnstarted:
		return "⭕"
	case model.StateGroupStarted:
		return "▶️"
	case model.StateGroupCompleted:
		return "✅"
	case model.StateGroupCancelled:
		return "❌"
	case model.StateGroupDuplicate:
		return "🔄"
	default:
		return "❔"
	}
}

// FormatState renders a state name with its group marker, e.g. "▶️ In progress".
func FormatState(state model.WorkflowState) string {
	if state.Name == "" {
		return "Unknown"
	}
	lower := strings.ToLower(state.Name)
	return StateEmoji(state.Group) + " " + strings.ToUpper(lower[:1]) + lower[1:]
}

// FormatDate renders a timestamp in local time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// Truncate shortens s to at most n runes, ending in "..." when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// FormatFileSize renders a byte count in human units, e.g. "1.5 MB".
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	units := []string{"KB", "MB", "GB", "TB"}
	i := -1
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}

// fileIcons maps lower-case extensions to display icons.
var fileIcons = map[string]string{
	".png": "🖼️", ".jpg": "🖼️", ".jpeg": "🖼️", ".gif": "🖼️", ".webp": "🖼️", ".svg": "🖼️",
	".pdf": "📕",
	".doc": "📄", ".docx": "📄", ".odt": "📄", ".rtf": "📄",
	".xls": "📊", ".xlsx": "📊", ".csv": "📊", ".ods": "📊",
	".ppt": "📽️", ".pptx": "📽️",
	".zip": "📦", ".tar": "📦", ".gz": "📦", ".rar": "📦", ".7z": "📦",
	".txt": "📝", ".md": "📝", ".log": "📝",
	".json": "💻", ".yaml": "💻", ".yml": "💻", ".go": "💻", ".js": "💻", ".ts": "💻", ".py": "💻",
	".mp3": "🎵", ".wav": "🎵", ".ogg": "🎵",
	".mp4": "🎬", ".mov": "🎬", ".webm": "🎬",
}

// FileIcon returns an icon for a file based on its extension.
func FileIcon(fileName string) string {
	if icon, ok := fileIcons[strings.ToLower(filepath.Ext(fileName))]; ok {
		return icon
	}
	return "📎"
}
