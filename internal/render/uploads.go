package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/theme"
)

// UploadStatus summarizes where an upload attempt ended up.
func UploadStatus(rec model.UploadRecord) string {
	switch {
	case rec.NeedsReconciliation():
		return "⚠️ stored, not linked"
	case rec.Failed():
		return "❌ failed at " + rec.FailedPhase
	case rec.State == model.UploadCompleted:
		return "✅ completed"
	default:
		return "⏳ " + string(rec.State)
	}
}

// UploadJournal renders journal records as a table, newest first as given.
func UploadJournal(records []model.UploadRecord) string {
	if len(records) == 0 {
		return theme.MutedStyle.Render("No upload attempts recorded.")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("When", "Issue", "File", "Size", "Asset", "Status").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true)
			}
			if col == 5 && row >= 0 && row < len(records) {
				switch {
				case records[row].NeedsReconciliation():
					return style.Foreground(theme.ColorAmber)
				case records[row].Failed():
					return style.Foreground(theme.ColorRed)
				case records[row].State == model.UploadCompleted:
					return style.Foreground(theme.ColorGreen)
				}
			}
			return style
		})

	for _, rec := range records {
		asset := rec.AssetID
		if asset == "" {
			asset = "-"
		}
		t.Row(
			FormatDate(rec.CreatedAt),
			Truncate(rec.IssueID, 12),
			FileIcon(rec.FileName)+" "+Truncate(rec.FileName, 32),
			FormatFileSize(rec.FileSize),
			Truncate(asset, 12),
			UploadStatus(rec),
		)
	}
	return t.Render()
}
