package plane

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/planeissues/internal/model"
)

const (
	testWorkspace   = "acme"
	testProjectID   = "proj-1"
	testProjectPath = "/workspaces/acme/projects/proj-1"
	testAPIKey      = "test-key"
)

// fakePlane is an httptest server that answers like the Plane REST API for
// one project. Reference endpoints are registered up front; tests add the
// handlers they exercise.
type fakePlane struct {
	t        *testing.T
	mux      *http.ServeMux
	server   *httptest.Server
	requests atomic.Int32
}

func newFakePlane(t *testing.T) *fakePlane {
	t.Helper()

	f := &fakePlane{t: t, mux: http.NewServeMux()}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)

	f.handle("GET "+testProjectPath+"/states/{$}", respondJSON(http.StatusOK, map[string]interface{}{
		"results": []map[string]interface{}{
			{"id": "st-1", "name": "in progress", "color": "#F59E0B", "group": "started"},
			{"id": "st-2", "name": "Done", "color": "#16A34A", "group": "completed"},
		},
	}))
	f.handle("GET "+testProjectPath+"/labels/{$}", respondJSON(http.StatusOK, map[string]interface{}{
		"results": []map[string]interface{}{
			{"id": "lb-1", "name": "bug", "color": "#FF0000"},
			{"id": "lb-2", "name": "ui", "color": "#0000FF"},
		},
	}))
	f.handle("GET "+testProjectPath+"/{$}", respondJSON(http.StatusOK, map[string]interface{}{
		"id": testProjectID, "identifier": "WEB", "name": "Website",
	}))

	return f
}

func (f *fakePlane) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakePlane) adapter(opts ...Option) *Adapter {
	opts = append([]Option{
		WithStorageClient(f.server.Client()),
		WithLogger(slog.New(slog.DiscardHandler)),
	}, opts...)

	return NewAdapter(model.PlaneConfig{
		BaseURL:       f.server.URL,
		AppURL:        "https://app.example.com/",
		APIKey:        testAPIKey,
		WorkspaceSlug: testWorkspace,
		ProjectID:     testProjectID,
	}, model.UploadConfig{
		CredentialTimeout: 5 * time.Second,
		StorageTimeout:    5 * time.Second,
		CompleteTimeout:   5 * time.Second,
	}, opts...)
}

func respondJSON(status int, body interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func respondRaw(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// issueJSON builds a wire issue in project proj-1.
func issueJSON(id string, seq int, state string, labels ...string) map[string]interface{} {
	if labels == nil {
		labels = []string{}
	}
	return map[string]interface{}{
		"id":                   id,
		"name":                 "Issue " + id,
		"description_html":     "<p>Body of " + id + "</p>",
		"description_stripped": "Body of " + id,
		"priority":             "medium",
		"state":                state,
		"labels":               labels,
		"sequence_id":          seq,
		"project":              testProjectID,
		"created_at":           "2025-03-01T10:00:00Z",
		"updated_at":           "2025-03-02T11:30:00Z",
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

// memJournal records every saved upload record in order.
type memJournal struct {
	mu      sync.Mutex
	records []model.UploadRecord
}

func (j *memJournal) SaveUploadRecord(_ context.Context, rec model.UploadRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *memJournal) last() model.UploadRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.records[len(j.records)-1]
}

func (j *memJournal) states() []model.UploadState {
	j.mu.Lock()
	defer j.mu.Unlock()
	var states []model.UploadState
	for _, rec := range j.records {
		if len(states) == 0 || states[len(states)-1] != rec.State {
			states = append(states, rec.State)
		}
	}
	return states
}
