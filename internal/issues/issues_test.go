package issues

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v58/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/config"
)

func testReport() *schemas.Report {
	return &schemas.Report{
		RunID:        "run-1",
		URL:          "https://shop.example.com/checkout",
		TestDate:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		OverallScore: 61,
		Findings: []schemas.Finding{
			{Category: "SEO", Test: "Page Title", Status: schemas.StatusFail, Severity: schemas.SeverityHigh, Score: 2, Details: "Page has no title."},
			{Category: "Visual Design", Test: "Image Alt Text", Status: schemas.StatusFail, Severity: schemas.SeverityMedium, Score: 8},
			{
				Category: "Forms", Test: "Form Labels", Status: schemas.StatusFail, Severity: schemas.SeverityHigh, Score: 0,
				Details:         "5 form fields have no label.",
				Elements:        []schemas.ElementIssue{{Selector: "input#email", Description: "Field has no accessible label"}},
				Recommendations: []string{"Associate a <label> with every field."},
			},
			{Category: "Navigation", Test: "Navigation Structure", Status: schemas.StatusWarning, Severity: schemas.SeverityHigh, Score: 5},
		},
	}
}

func TestPlan(t *testing.T) {
	drafts := Plan(testReport(), []string{"ux-audit"}, 0)
	require.Len(t, drafts, 2)

	// Worst score first.
	assert.Equal(t, "[uxprobe] Forms: Form Labels on shop.example.com", drafts[0].Title)
	assert.Equal(t, "[uxprobe] SEO: Page Title on shop.example.com", drafts[1].Title)
	assert.Equal(t, []string{"ux-audit"}, drafts[0].Labels)

	body := drafts[0].Body
	assert.Contains(t, body, "**Page:** https://shop.example.com/checkout")
	assert.Contains(t, body, "- `input#email`: Field has no accessible label")
	assert.Contains(t, body, "- Associate a <label> with every field.")
	assert.Contains(t, body, "overall score 61/100")

	assert.Len(t, Plan(testReport(), nil, 1), 1, "the cap limits the drafts")
}

func TestNewValidation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	_, err := New(config.GitHubConfig{Repo: "r", Token: "x"}, logger)
	assert.Error(t, err)
	_, err = New(config.GitHubConfig{Owner: "o", Repo: "r"}, logger)
	assert.ErrorContains(t, err, "token")
	f, err := New(config.GitHubConfig{Owner: "o", Repo: "r", Token: "x", RatePerMinute: 30}, logger)
	require.NoError(t, err)
	assert.Equal(t, 0.5, float64(f.limiter.Limit()))
}

type fakeGitHub struct {
	mu      sync.Mutex
	created []github.IssueRequest
	listed  int
}

func (g *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/site/issues", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			g.listed++
			assert.Equal(t, "open", r.URL.Query().Get("state"))
			assert.Equal(t, "ux-audit", r.URL.Query().Get("labels"))
			_ = json.NewEncoder(w).Encode([]map[string]interface{}{
				{"number": 7, "title": "[uxprobe] SEO: Page Title on shop.example.com", "html_url": "https://github.com/acme/site/issues/7"},
				{"number": 8, "title": "[uxprobe] Forms: Form Labels on shop.example.com", "pull_request": map[string]string{"url": "x"}},
			})
		case http.MethodPost:
			var req github.IssueRequest
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			g.created = append(g.created, req)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"number": 42, "title": req.GetTitle(), "html_url": "https://github.com/acme/site/issues/42",
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newTestFiler(t *testing.T, srv *httptest.Server) *Filer {
	t.Helper()
	client := github.NewClient(srv.Client())
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	f, err := New(config.GitHubConfig{Owner: "acme", Repo: "site", Labels: []string{"ux-audit"}}, zaptest.NewLogger(t), WithClient(client))
	require.NoError(t, err)
	return f
}

func TestFileSkipsOpenIssues(t *testing.T) {
	gh := &fakeGitHub{}
	srv := httptest.NewServer(gh.handler(t))
	defer srv.Close()

	filed, err := newTestFiler(t, srv).File(context.Background(), testReport())
	require.NoError(t, err)
	require.Len(t, filed, 2)

	// Pull requests do not count as open issues.
	assert.Equal(t, 42, filed[0].Number)
	assert.False(t, filed[0].Existing)
	assert.Equal(t, "https://github.com/acme/site/issues/42", filed[0].URL)

	assert.True(t, filed[1].Existing)
	assert.Equal(t, 7, filed[1].Number)

	require.Len(t, gh.created, 1)
	assert.Equal(t, "[uxprobe] Forms: Form Labels on shop.example.com", gh.created[0].GetTitle())
	require.NotNil(t, gh.created[0].Labels)
	assert.Equal(t, []string{"ux-audit"}, *gh.created[0].Labels)
	assert.Equal(t, 1, gh.listed)
}

func TestFileNothingToDo(t *testing.T) {
	gh := &fakeGitHub{}
	srv := httptest.NewServer(gh.handler(t))
	defer srv.Close()

	report := testReport()
	report.Findings = report.Findings[1:2]
	filed, err := newTestFiler(t, srv).File(context.Background(), report)
	require.NoError(t, err)
	assert.Empty(t, filed)
	assert.Zero(t, gh.listed, "no API calls without drafts")
}

func TestFileAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer srv.Close()

	_, err := newTestFiler(t, srv).File(context.Background(), testReport())
	assert.ErrorContains(t, err, "failed to list open issues")
}
