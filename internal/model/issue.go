package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency level Plane assigns to an issue.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Priorities lists every valid priority, most urgent first.
var Priorities = []Priority{
	PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow, PriorityNone,
}

// ParsePriority converts user input into a Priority. The empty string maps
// to PriorityNone.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityNone, nil
	}
	for _, p := range Priorities {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// StateGroup is the workflow bucket a state belongs to.
type StateGroup string

const (
	StateGroupBacklog   StateGroup = "backlog"
	StateGroupUnstarted StateGroup = "unstarted"
	StateGroupStarted   StateGroup = "started"
	StateGroupCompleted StateGroup = "completed"
	StateGroupCancelled StateGroup = "cancelled"
	StateGroupDuplicate StateGroup = "duplicate"

	// StateGroupUnknown marks a state reference that could not be resolved.
	StateGroupUnknown StateGroup = "Unknown"
)

// ProjectIdentity identifies the single project this client works against.
type ProjectIdentity struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// WorkflowState is one state of the project's workflow.
type WorkflowState struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Color     string     `json:"color"`
	Group     StateGroup `json:"group"`
	Sequence  float64    `json:"sequence"`
	IsDefault bool       `json:"is_default"`
}

// UnknownState is substituted when an issue points at a state that is not
// in the cached state set.
var UnknownState = WorkflowState{Name: "Unknown", Group: StateGroupUnknown}

// Label is a project label.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RawIssue is an issue as returned by the tracker, with references left as ids.
type RawIssue struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	DescriptionHTML     string    `json:"description_html"`
	DescriptionStripped string    `json:"description_stripped"`
	Priority            Priority  `json:"priority"`
	StateID             string    `json:"state"`
	LabelIDs            []string  `json:"labels"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	SequenceID          int       `json:"sequence_id"`
}

// EnrichedIssue is a RawIssue with its references resolved for display.
type EnrichedIssue struct {
	RawIssue

	StateDetail  WorkflowState `json:"state_detail"`
	LabelDetails []Label       `json:"label_details"`
	FormattedID  string        `json:"formatted_id"`
	Description  string        `json:"description"`

	// Attachments is only populated by single-issue lookups.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// IssueFilter narrows an issue listing. Zero values mean "no filter".
type IssueFilter struct {
	StateNameContains string
	Priority          Priority
}

// IssuePage is one page of an issue listing.
type IssuePage struct {
	TotalCount int
	Items      []EnrichedIssue
}
