package plane

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/planeissues/internal/model"
	"github.com/nhle/planeissues/internal/source"
)

// listPageSize is the fixed page size of issue listings.
const listPageSize = 10

// sequenceIDPattern matches a formatted issue id such as "WEB-42".
var sequenceIDPattern = regexp.MustCompile(`^[A-Z0-9]+-[0-9]+$`)

// digitsPattern matches a bare sequence number.
var digitsPattern = regexp.MustCompile(`^[0-9]+$`)

// Adapter implements source.Tracker for a single Plane project.
type Adapter struct {
	client      *Client
	cache       *ReferenceCache
	uploader    *UploadCoordinator
	appURL      string
	workspace   string
	projectID   string
	projectPath string
	logger      *slog.Logger
}

var _ source.Tracker = (*Adapter)(nil)

// Option customizes an Adapter.
type Option func(*adapterOptions)

type adapterOptions struct {
	journal       UploadJournal
	storageClient *http.Client
	logger        *slog.Logger
}

// WithJournal records every upload attempt in j.
func WithJournal(j UploadJournal) Option {
	return func(o *adapterOptions) { o.journal = j }
}

// WithStorageClient sets the HTTP client used for object-storage writes.
func WithStorageClient(c *http.Client) Option {
	return func(o *adapterOptions) { o.storageClient = c }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(o *adapterOptions) { o.logger = l }
}

// NewAdapter creates a Plane adapter for the configured workspace and project.
func NewAdapter(
	cfg model.PlaneConfig,
	uploadCfg model.UploadConfig,
	opts ...Option,
) *Adapter {
	o := adapterOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.storageClient == nil {
		o.storageClient = &http.Client{}
	}

	client := NewClient(cfg.BaseURL, cfg.APIKey, cfg.RequestsPerMinute, cfg.RequestTimeout)
	projectPath := fmt.Sprintf(
		"/workspaces/%s/projects/%s",
		url.PathEscape(cfg.WorkspaceSlug), url.PathEscape(cfg.ProjectID),
	)

	return &Adapter{
		client: client,
		cache: NewReferenceCache(
			&apiReferences{client: client, projectPath: projectPath},
			o.logger,
		),
		uploader: &UploadCoordinator{
			client:      client,
			storage:     o.storageClient,
			projectPath: projectPath,
			timeouts:    uploadCfg,
			journal:     o.journal,
			logger:      o.logger,
		},
		appURL:      strings.TrimRight(cfg.AppURL, "/"),
		workspace:   cfg.WorkspaceSlug,
		projectID:   cfg.ProjectID,
		projectPath: projectPath,
		logger:      o.logger,
	}
}

// Cache exposes the adapter's reference data cache.
func (a *Adapter) Cache() *ReferenceCache {
	return a.cache
}

// IssueURL returns the web app link for an issue.
func (a *Adapter) IssueURL(issueID string) string {
	return fmt.Sprintf(
		"%s/%s/projects/%s/issues/%s",
		a.appURL, a.workspace, a.projectID, issueID,
	)
}

// references holds the three reference lookups fetched for one request.
type references struct {
	states  map[string]model.WorkflowState
	labels  map[string]model.Label
	project model.ProjectIdentity
}

// loadReferences fans out the three cache lookups on g. Only the project
// lookup can fail.
func (a *Adapter) loadReferences(ctx context.Context, g *errgroup.Group, refs *references) {
	g.Go(func() error {
		refs.states = a.cache.States(ctx)
		return nil
	})
	g.Go(func() error {
		refs.labels = a.cache.Labels(ctx)
		return nil
	})
	g.Go(func() error {
		project, err := a.cache.Project(ctx)
		refs.project = project
		return err
	})
}

// ListIssues returns the newest issues matching filter, one page of ten.
func (a *Adapter) ListIssues(
	ctx context.Context,
	filter model.IssueFilter,
) (*model.IssuePage, error) {
	query := url.Values{}
	query.Set("per_page", fmt.Sprint(listPageSize))
	query.Set("order_by", "-created_at")
	if filter.StateNameContains != "" {
		query.Set("state__name__icontains", filter.StateNameContains)
	}
	if filter.Priority != "" {
		query.Set("priority", string(filter.Priority))
	}
	path := a.projectPath + "/issues/?" + query.Encode()

	var (
		refs references
		resp ListResponse[Issue]
	)
	g, gctx := errgroup.WithContext(ctx)
	a.loadReferences(gctx, g, &refs)
	g.Go(func() error {
		if err := a.client.Get(gctx, path, &resp); err != nil {
			return classify(err, source.PhaseListIssues, "", "")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raws := make([]model.RawIssue, 0, len(resp.Results))
	for _, issue := range resp.Results {
		raw, err := toRawIssue(issue)
		if err != nil {
			return nil, &source.UpstreamError{Phase: source.PhaseListIssues, Err: err}
		}
		raws = append(raws, raw)
	}

	total := resp.TotalCount
	if total == 0 {
		total = resp.TotalResults
	}
	if total < len(raws) {
		total = len(raws)
	}

	a.logger.Debug("listed issues",
		"count", len(raws), "total", total,
		"state", filter.StateNameContains, "priority", filter.Priority,
	)

	return &model.IssuePage{
		TotalCount: total,
		Items:      EnrichAll(raws, refs.states, refs.labels, refs.project),
	}, nil
}

// CreateIssue creates an issue in the project and returns the raw record.
func (a *Adapter) CreateIssue(
	ctx context.Context,
	title string,
	description string,
	priority model.Priority,
) (*model.RawIssue, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &source.ValidationError{
			Phase:   source.PhaseCreateIssue,
			Message: "issue title is required",
		}
	}
	if priority == "" {
		priority = model.PriorityNone
	}
	if _, err := model.ParsePriority(string(priority)); err != nil {
		return nil, &source.ValidationError{
			Phase:   source.PhaseCreateIssue,
			Message: "invalid priority",
			Err:     err,
		}
	}

	body := map[string]interface{}{
		"name":     title,
		"priority": string(priority),
	}
	if description = strings.TrimSpace(description); description != "" {
		body["description_html"] = "<p>" + html.EscapeString(description) + "</p>"
	}

	var issue Issue
	if err := a.client.Post(ctx, a.projectPath+"/issues/", body, &issue); err != nil {
		return nil, classify(err, source.PhaseCreateIssue, "", "")
	}

	raw, err := toRawIssue(issue)
	if err != nil {
		return nil, &source.UpstreamError{Phase: source.PhaseCreateIssue, Err: err}
	}

	a.logger.Info("issue created", "issue_id", raw.ID, "sequence_id", raw.SequenceID)
	return &raw, nil
}

// GetIssueByID fetches one issue by id with its references and attachments.
func (a *Adapter) GetIssueByID(
	ctx context.Context,
	issueID string,
) (*model.EnrichedIssue, error) {
	path := fmt.Sprintf("%s/issues/%s/", a.projectPath, url.PathEscape(issueID))

	var (
		refs        references
		issue       Issue
		attachments []model.Attachment
	)
	g, gctx := errgroup.WithContext(ctx)
	a.loadReferences(gctx, g, &refs)
	g.Go(func() error {
		if err := a.client.Get(gctx, path, &issue); err != nil {
			return classify(err, source.PhaseGetIssue, "issue", issueID)
		}
		return nil
	})
	g.Go(func() error {
		attachments = a.issueAttachments(gctx, issueID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	raw, err := toRawIssue(issue)
	if err != nil {
		return nil, &source.UpstreamError{Phase: source.PhaseGetIssue, Err: err}
	}

	enriched := Enrich(raw, refs.states, refs.labels, refs.project)
	enriched.Attachments = attachments
	return &enriched, nil
}

// GetIssueBySequenceID fetches one issue by its formatted id (e.g., WEB-42,
// case-insensitive). A bare number is resolved against this project.
func (a *Adapter) GetIssueBySequenceID(
	ctx context.Context,
	sequenceID string,
) (*model.EnrichedIssue, error) {
	seq := strings.ToUpper(strings.TrimSpace(sequenceID))
	if digitsPattern.MatchString(seq) {
		project, err := a.cache.Project(ctx)
		if err != nil {
			return nil, err
		}
		seq = project.Identifier + "-" + seq
	}
	if !sequenceIDPattern.MatchString(seq) {
		return nil, &source.ValidationError{
			Phase:   source.PhaseGetIssue,
			Message: fmt.Sprintf("invalid issue id %q, expected something like PROJ-123", sequenceID),
		}
	}

	path := fmt.Sprintf("/workspaces/%s/issues/%s/", url.PathEscape(a.workspace), seq)

	var (
		refs  references
		issue issueWithProject
	)
	g, gctx := errgroup.WithContext(ctx)
	a.loadReferences(gctx, g, &refs)
	g.Go(func() error {
		if err := a.client.Get(gctx, path, &issue); err != nil {
			return classify(err, source.PhaseGetIssue, "issue", seq)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The lookup is workspace-wide; issues of other projects are out of reach.
	if issue.Project != "" && issue.Project != a.projectID {
		return nil, &source.NotFoundError{Phase: source.PhaseGetIssue, Resource: "issue", ID: seq}
	}

	raw, err := toRawIssue(issue.Issue)
	if err != nil {
		return nil, &source.UpstreamError{Phase: source.PhaseGetIssue, Err: err}
	}

	enriched := Enrich(raw, refs.states, refs.labels, refs.project)
	enriched.Attachments = a.issueAttachments(ctx, raw.ID)
	return &enriched, nil
}

// UploadAttachment runs the upload protocol for payload against issueID.
func (a *Adapter) UploadAttachment(
	ctx context.Context,
	issueID string,
	payload []byte,
	fileName string,
	contentType string,
) (*model.Attachment, error) {
	return a.uploader.Upload(ctx, UploadRequest{
		IssueID:     issueID,
		FileName:    fileName,
		ContentType: contentType,
		Payload:     payload,
	})
}

// issueAttachments lists the uploaded attachments of an issue. Failures
// degrade to an empty list so the issue itself can still be shown.
func (a *Adapter) issueAttachments(ctx context.Context, issueID string) []model.Attachment {
	path := fmt.Sprintf("%s/issues/%s/issue-attachments/", a.projectPath, url.PathEscape(issueID))

	var list []Attachment
	if err := a.client.Get(ctx, path, &list); err != nil {
		a.logger.Warn("fetching attachments failed",
			"issue_id", issueID,
			"error", classify(err, source.PhaseGetAttachments, "", ""),
		)
		return []model.Attachment{}
	}

	attachments := make([]model.Attachment, 0, len(list))
	for _, att := range list {
		if att.IsUploaded != nil && !*att.IsUploaded {
			continue
		}
		attachments = append(attachments, toAttachment(att))
	}
	return attachments
}

// issueWithProject is the workspace-level issue lookup response, which
// also names the owning project.
type issueWithProject struct {
	Issue
	Project string `json:"project"`
}

// apiReferences loads reference data over the REST API.
type apiReferences struct {
	client      *Client
	projectPath string
}

func (r *apiReferences) FetchStates(ctx context.Context) ([]model.WorkflowState, error) {
	var resp ListResponse[State]
	if err := r.client.Get(ctx, r.projectPath+"/states/", &resp); err != nil {
		return nil, classify(err, source.PhaseStates, "", "")
	}
	if resp.Results == nil {
		return nil, &source.UpstreamError{
			Phase: source.PhaseStates,
			Err:   errors.New("response has no results"),
		}
	}

	states := make([]model.WorkflowState, 0, len(resp.Results))
	for _, s := range resp.Results {
		states = append(states, toWorkflowState(s))
	}
	return states, nil
}

func (r *apiReferences) FetchLabels(ctx context.Context) ([]model.Label, error) {
	var resp ListResponse[Label]
	if err := r.client.Get(ctx, r.projectPath+"/labels/", &resp); err != nil {
		return nil, classify(err, source.PhaseLabels, "", "")
	}
	if resp.Results == nil {
		return nil, &source.UpstreamError{
			Phase: source.PhaseLabels,
			Err:   errors.New("response has no results"),
		}
	}

	labels := make([]model.Label, 0, len(resp.Results))
	for _, l := range resp.Results {
		labels = append(labels, toLabel(l))
	}
	return labels, nil
}

func (r *apiReferences) FetchProject(ctx context.Context) (model.ProjectIdentity, error) {
	var project Project
	if err := r.client.Get(ctx, r.projectPath+"/", &project); err != nil {
		return model.ProjectIdentity{}, classify(err, source.PhaseProject, "", "")
	}
	return model.ProjectIdentity{
		ID:         project.ID,
		Identifier: project.Identifier,
		Name:       project.Name,
	}, nil
}

// classify turns a Client error into the source error taxonomy. A 404 is
// reported as NotFoundError when resource names what was looked up.
func classify(err error, phase source.Phase, resource, id string) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusNotFound && resource != "" {
			return &source.NotFoundError{Phase: phase, Resource: resource, ID: id}
		}
		return &source.UpstreamError{Phase: phase, StatusCode: statusErr.StatusCode, Err: err}
	}
	return &source.UpstreamError{Phase: phase, Err: err}
}
