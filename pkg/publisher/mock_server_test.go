package publisher

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	gh "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/require"

	ghclient "github.com/holon-run/reportbot/pkg/github"
)

// mockGitHubServer is an in-memory GitHub API serving the check run and
// issue comment endpoints the publishers call.
type mockGitHubServer struct {
	server *httptest.Server

	mu            sync.Mutex
	issueComments []*gh.IssueComment
	checkRuns     []gh.CreateCheckRunOptions
	nextCommentID int64

	// status overrides the response status of one endpoint:
	// "check", "create", "list" or "edit".
	status map[string]int

	createCheckRunCalls     int
	createIssueCommentCalls int
	listIssueCommentsCalls  int
	editCommentCalls        int
}

func newMockGitHubServer(t *testing.T) *mockGitHubServer {
	t.Helper()
	m := &mockGitHubServer{
		nextCommentID: 2000000000,
		status:        map[string]int{},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	t.Cleanup(m.server.Close)
	return m
}

// publisher returns a Publisher talking to the mock server.
func (m *mockGitHubServer) publisher(t *testing.T, opts ...Option) *Publisher {
	t.Helper()
	client, err := ghclient.NewClient("test-token",
		ghclient.WithBaseURL(m.server.URL),
		ghclient.WithHTTPClient(m.server.Client()),
	)
	require.NoError(t, err)
	return NewFromClient(client, opts...)
}

// seedComment stores an existing comment and returns its ID.
func (m *mockGitHubServer) seedComment(body string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCommentID++
	m.issueComments = append(m.issueComments, &gh.IssueComment{
		ID:   gh.Ptr(m.nextCommentID),
		Body: gh.Ptr(body),
	})
	return m.nextCommentID
}

func (m *mockGitHubServer) comments() []*gh.IssueComment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*gh.IssueComment(nil), m.issueComments...)
}

func (m *mockGitHubServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/check-runs") && r.Method == http.MethodPost:
		m.handleCreateCheckRun(w, r)
	case strings.Contains(path, "/issues/comments/") && r.Method == http.MethodPatch:
		m.handleEditComment(w, r)
	case strings.Contains(path, "/issues/") && strings.HasSuffix(path, "/comments") && r.Method == http.MethodGet:
		m.handleListIssueComments(w, r)
	case strings.Contains(path, "/issues/") && strings.HasSuffix(path, "/comments") && r.Method == http.MethodPost:
		m.handleCreateIssueComment(w, r)
	default:
		http.NotFound(w, r)
	}
}

// override writes the configured status for endpoint, if any.
func (m *mockGitHubServer) override(w http.ResponseWriter, endpoint string) bool {
	code, ok := m.status[endpoint]
	if !ok {
		return false
	}
	writeJSON(w, code, map[string]string{"message": http.StatusText(code)})
	return true
}

func (m *mockGitHubServer) handleCreateCheckRun(w http.ResponseWriter, r *http.Request) {
	m.createCheckRunCalls++
	if m.override(w, "check") {
		return
	}

	var opts gh.CreateCheckRunOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.checkRuns = append(m.checkRuns, opts)

	writeJSON(w, http.StatusCreated, &gh.CheckRun{
		ID:      gh.Ptr(int64(len(m.checkRuns))),
		Name:    gh.Ptr(opts.Name),
		HeadSHA: gh.Ptr(opts.HeadSHA),
	})
}

// handleListIssueComments serves comments in creation order, paginated
// with a Link header like the real API.
func (m *mockGitHubServer) handleListIssueComments(w http.ResponseWriter, r *http.Request) {
	m.listIssueCommentsCalls++
	if m.override(w, "list") {
		return
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage <= 0 {
		perPage = 30
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(m.issueComments) {
		start = len(m.issueComments)
	}
	if end > len(m.issueComments) {
		end = len(m.issueComments)
	}
	if end < len(m.issueComments) {
		next := fmt.Sprintf("%s%s?page=%d&per_page=%d", m.server.URL, r.URL.Path, page+1, perPage)
		w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next"`, next))
	}

	writeJSON(w, http.StatusOK, m.issueComments[start:end])
}

func (m *mockGitHubServer) handleCreateIssueComment(w http.ResponseWriter, r *http.Request) {
	m.createIssueCommentCalls++
	if m.override(w, "create") {
		return
	}

	var comment gh.IssueComment
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m.nextCommentID++
	comment.ID = gh.Ptr(m.nextCommentID)
	m.issueComments = append(m.issueComments, &comment)

	writeJSON(w, http.StatusCreated, &comment)
}

// handleEditComment handles PATCH /repos/:owner/:repo/issues/comments/:id
func (m *mockGitHubServer) handleEditComment(w http.ResponseWriter, r *http.Request) {
	m.editCommentCalls++
	if m.override(w, "edit") {
		return
	}

	id, err := strconv.ParseInt(r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var update gh.IssueComment
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, comment := range m.issueComments {
		if comment.GetID() == id {
			comment.Body = update.Body
			writeJSON(w, http.StatusOK, comment)
			return
		}
	}
	http.NotFound(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
