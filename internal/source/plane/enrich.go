package plane

import (
	"strconv"

	"github.com/nhle/planeissues/internal/model"
)

// FormatIssueID renders the human-facing id of an issue, e.g. "WEB-42".
func FormatIssueID(identifier string, sequenceID int) string {
	return identifier + "-" + strconv.Itoa(sequenceID)
}

// Enrich resolves the state and label references of raw against the given
// lookups. A dangling state becomes model.UnknownState and dangling labels
// are dropped; neither is an error.
func Enrich(
	raw model.RawIssue,
	states map[string]model.WorkflowState,
	labels map[string]model.Label,
	project model.ProjectIdentity,
) model.EnrichedIssue {
	state, ok := states[raw.StateID]
	if !ok {
		state = model.UnknownState
	}

	labelDetails := make([]model.Label, 0, len(raw.LabelIDs))
	for _, id := range raw.LabelIDs {
		if label, ok := labels[id]; ok {
			labelDetails = append(labelDetails, label)
		}
	}

	description := raw.DescriptionStripped
	if description == "" {
		description = raw.DescriptionHTML
	}

	return model.EnrichedIssue{
		RawIssue:     raw,
		StateDetail:  state,
		LabelDetails: labelDetails,
		FormattedID:  FormatIssueID(project.Identifier, raw.SequenceID),
		Description:  description,
	}
}

// EnrichAll enriches each issue, preserving input order.
func EnrichAll(
	raws []model.RawIssue,
	states map[string]model.WorkflowState,
	labels map[string]model.Label,
	project model.ProjectIdentity,
) []model.EnrichedIssue {
	out := make([]model.EnrichedIssue, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Enrich(raw, states, labels, project))
	}
	return out
}
