package plane

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/planeissues/internal/model"
)

// ListResponse is the paginated envelope Plane wraps list endpoints in.
type ListResponse[T any] struct {
	TotalCount      int    `json:"total_count"`
	Count           int    `json:"count"`
	TotalPages      int    `json:"total_pages"`
	TotalResults    int    `json:"total_results"`
	NextCursor      string `json:"next_cursor"`
	PrevCursor      string `json:"prev_cursor"`
	NextPageResults bool   `json:"next_page_results"`
	PrevPageResults bool   `json:"prev_page_results"`

	// Results is nil when the body carried no results array.
	Results []T `json:"results"`
}

// State is a workflow state from GET .../states/.
type State struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Group       string  `json:"group"`
	Sequence    float64 `json:"sequence"`
	Description string  `json:"description"`
	Default     bool    `json:"default"`
}

// Label is a project label from GET .../labels/.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Project is the response from GET .../projects/{id}/.
type Project struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// Issue is a single issue from the REST API.
type Issue struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	DescriptionHTML     string    `json:"description_html"`
	DescriptionStripped *string   `json:"description_stripped"`
	Priority            *string   `json:"priority"`
	State               string    `json:"state"`
	Labels              *[]string `json:"labels"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	SequenceID          int       `json:"sequence_id"`
}

// AttachmentAttributes describes the stored file behind an attachment.
type AttachmentAttributes struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Attachment is an issue attachment from GET .../issue-attachments/.
type Attachment struct {
	ID         string               `json:"id"`
	Attributes AttachmentAttributes `json:"attributes"`
	Issue      string               `json:"issue"`
	IssueID    string               `json:"issue_id"`
	IsUploaded *bool                `json:"is_uploaded"`
}

// UploadData is the storage half of an upload credential.
type UploadData struct {
	URL    string       `json:"url"`
	Fields SignedFields `json:"fields"`
}

// UploadCredentialResponse is the response from
// POST .../issues/{id}/issue-attachments/.
type UploadCredentialResponse struct {
	UploadData UploadData  `json:"upload_data"`
	AssetID    string      `json:"asset_id"`
	Attachment *Attachment `json:"attachment"`
}

// ErrorResponse is the error body Plane returns on failures.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (e ErrorResponse) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}

// SignedFields holds signed-POST form fields in the order the server sent
// them. encoding/json maps drop key order, which the storage signature
// check depends on, so the object is decoded token by token.
type SignedFields []model.FormField

// UnmarshalJSON decodes a flat JSON object of string values, keeping key order.
func (f *SignedFields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading signed fields: %w", err)
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("signed fields: expected a JSON object")
	}

	fields := SignedFields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading signed field name: %w", err)
		}
		key, _ := keyTok.(string)

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("reading signed field %q: %w", key, err)
		}
		fields = append(fields, model.FormField{Name: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading signed fields: %w", err)
	}

	*f = fields
	return nil
}

// MarshalJSON encodes the fields as a JSON object in slice order.
func (f SignedFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// toRawIssue converts a wire issue into the domain record. A record with no
// labels array is malformed and rejected.
func toRawIssue(issue Issue) (model.RawIssue, error) {
	if issue.Labels == nil {
		return model.RawIssue{}, fmt.Errorf("malformed issue %s: missing labels", issue.ID)
	}

	raw := model.RawIssue{
		ID:              issue.ID,
		Name:            issue.Name,
		DescriptionHTML: issue.DescriptionHTML,
		StateID:         issue.State,
		LabelIDs:        *issue.Labels,
		CreatedAt:       issue.CreatedAt,
		UpdatedAt:       issue.UpdatedAt,
		SequenceID:      issue.SequenceID,
		Priority:        model.PriorityNone,
	}
	if issue.DescriptionStripped != nil {
		raw.DescriptionStripped = *issue.DescriptionStripped
	}
	if issue.Priority != nil && *issue.Priority != "" {
		raw.Priority = model.Priority(*issue.Priority)
	}
	return raw, nil
}

func toWorkflowState(s State) model.WorkflowState {
	return model.WorkflowState{
		ID:        s.ID,
		Name:      s.Name,
		Color:     s.Color,
		Group:     model.StateGroup(s.Group),
		Sequence:  s.Sequence,
		IsDefault: s.Default,
	}
}

func toLabel(l Label) model.Label {
	return model.Label{ID: l.ID, Name: l.Name, Color: l.Color}
}

func toAttachment(a Attachment) model.Attachment {
	issueID := a.Issue
	if issueID == "" {
		issueID = a.IssueID
	}
	return model.Attachment{
		ID:            a.ID,
		IssueID:       issueID,
		FileName:      a.Attributes.Name,
		FileSizeBytes: a.Attributes.Size,
		ContentType:   a.Attributes.Type,
	}
}
