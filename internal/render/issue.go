package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/source"
	"github.com/nhle/planeissues/internal/theme"
)

// maxListedAttachments is how many attachments a detail card lists by name.
const maxListedAttachments = 3

// Linker builds web links to issues.
type Linker interface {
	IssueURL(issueID string) string
}

func field(name, value string) string {
	return theme.FieldNameStyle.Render(name+":") + " " + value
}

func card(accent lipgloss.TerminalColor, sections ...string) string {
	return theme.CardStyle(accent).Render(strings.Join(sections, "\n\n"))
}

// IssueList renders one page of issues, or a hint when there are none.
func IssueList(page *model.IssuePage, links Linker) string {
	if page == nil || len(page.Items) == 0 {
		return card(theme.ColorGray,
			theme.TitleStyle.Render("📋 No Issues Found"),
			"No issues match your criteria. Try different filters or create a new issue.",
		)
	}

	sections := []string{
		theme.TitleStyle.Render("📋 Issues List"),
		theme.MutedStyle.Render(fmt.Sprintf("Showing %d of %d issues", len(page.Items), page.TotalCount)),
	}
	for _, issue := range page.Items {
		sections = append(sections, strings.Join([]string{
			theme.TitleStyle.Render(issue.FormattedID + " " + issue.Name),
			field("Priority", PriorityText(issue.Priority)),
			field("State", FormatState(issue.StateDetail)),
			field("Created", FormatDate(issue.CreatedAt)),
			theme.MutedStyle.Render(links.IssueURL(issue.ID)),
		}, "\n"))
	}
	return card(theme.ColorBlue, sections...)
}

// IssueDetail renders a single issue with its labels and attachments.
func IssueDetail(issue *model.EnrichedIssue, links Linker) string {
	name := issue.Name
	if name == "" {
		name = "Untitled Issue"
	}

	sections := []string{theme.TitleStyle.Render(issue.FormattedID + " " + name)}
	if desc := strings.TrimSpace(issue.Description); desc != "" {
		sections = append(sections, theme.QuoteStyle.Render(desc))
	}
	sections = append(sections, strings.Join([]string{
		field("Priority", PriorityText(issue.Priority)),
		field("State", FormatState(issue.StateDetail)),
	}, "\n"))

	if len(issue.LabelDetails) > 0 {
		chips := make([]string, 0, len(issue.LabelDetails))
		for _, label := range issue.LabelDetails {
			chips = append(chips, theme.LabelStyle(label).Render(label.Name))
		}
		sections = append(sections, "🏷️ "+lipgloss.JoinHorizontal(lipgloss.Top, chips...))
	}

	if text := Attachments(issue.Attachments); text != "" {
		sections = append(sections, field("📁 Attachments", "")+"\n"+text)
	}

	sections = append(sections,
		"🔗 "+links.IssueURL(issue.ID),
		theme.MutedStyle.Render(Metadata(issue)),
	)
	return card(theme.IssueColor(*issue), sections...)
}

// Attachments lists the first few attachments and counts the rest. It
// returns "" when there are none.
func Attachments(attachments []model.Attachment) string {
	if len(attachments) == 0 {
		return ""
	}

	lines := make([]string, 0, maxListedAttachments+1)
	for i, att := range attachments {
		if i == maxListedAttachments {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s (%s)",
			FileIcon(att.FileName), att.FileName, FormatFileSize(att.FileSizeBytes),
		))
	}
	if remaining := len(attachments) - maxListedAttachments; remaining > 0 {
		plural := "s"
		if remaining == 1 {
			plural = ""
		}
		lines = append(lines, fmt.Sprintf("📎 +%d more attachment%s", remaining, plural))
	}
	return strings.Join(lines, "\n")
}

// Metadata renders the created/updated footer of an issue.
func Metadata(issue *model.EnrichedIssue) string {
	var parts []string
	if !issue.CreatedAt.IsZero() {
		parts = append(parts, "📅 Created: "+FormatDate(issue.CreatedAt))
	}
	if !issue.UpdatedAt.IsZero() && !issue.UpdatedAt.Equal(issue.CreatedAt) {
		parts = append(parts, "🔄 Updated: "+FormatDate(issue.UpdatedAt))
	}
	return strings.Join(parts, " • ")
}

// CreatedIssue renders the confirmation for a newly created issue.
func CreatedIssue(issue *model.EnrichedIssue, links Linker) string {
	return card(theme.PriorityColor(issue.Priority),
		theme.TitleStyle.Render("✅ Issue Created Successfully"),
		theme.QuoteStyle.Render(issue.Name),
		strings.Join([]string{
			field("ID", issue.FormattedID),
			field("Priority", PriorityText(issue.Priority)),
			field("Description", Truncate(issue.Description, 100)),
		}, "\n"),
		"🔗 "+links.IssueURL(issue.ID),
		theme.MutedStyle.Render("📅 Created: "+FormatDate(issue.CreatedAt)),
	)
}

// UploadResult renders the confirmation for a completed upload.
func UploadResult(issue *model.EnrichedIssue, att *model.Attachment, links Linker) string {
	name := issue.Name
	if name == "" {
		name = "Untitled Issue"
	}
	return card(theme.ColorGreen,
		theme.TitleStyle.Render("✅ File Uploaded Successfully"),
		field("Issue", issue.FormattedID+" "+name),
		strings.Join([]string{
			FileIcon(att.FileName) + " " + field("Name", att.FileName),
			"📏 " + field("Size", FormatFileSize(att.FileSizeBytes)),
			"🏷️ " + field("Type", att.ContentType),
		}, "\n"),
		"🔗 "+links.IssueURL(issue.ID),
	)
}

// Failure renders an error for the person who ran the command.
func Failure(title string, err error) string {
	return card(theme.ColorRed,
		theme.TitleStyle.Render("❌ "+title),
		source.UserMessage(err),
	)
}

// Progress renders an in-flight status line.
func Progress(title, detail string) string {
	return lipgloss.NewStyle().Foreground(theme.ColorAmber).Render("⏳ "+title) +
		" " + theme.MutedStyle.Render(detail)
}
