// Package issues files GitHub issues for the high-severity failures of a
// report, skipping any that are already open.
package issues

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/uxprobe/api/schemas"
	"github.com/xkilldash9x/uxprobe/internal/config"
	"github.com/xkilldash9x/uxprobe/internal/results"
)

const titlePrefix = "[uxprobe]"

// Draft is an issue ready to be filed.
type Draft struct {
	Title  string
	Body   string
	Labels []string
}

// Filed is the outcome for one draft.
type Filed struct {
	Title  string
	Number int
	URL    string
	// Existing is set when an open issue with the same title was found and
	// nothing was created.
	Existing bool
}

// Filer creates issues in one repository.
type Filer struct {
	client    *github.Client
	owner     string
	repo      string
	labels    []string
	maxIssues int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// Option customizes a Filer.
type Option func(*Filer)

// WithClient replaces the GitHub client, e.g. to point at an enterprise host.
func WithClient(c *github.Client) Option {
	return func(f *Filer) { f.client = c }
}

// New builds a Filer from the github config section.
func New(cfg config.GitHubConfig, logger *zap.Logger, opts ...Option) (*Filer, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("github.owner and github.repo are required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}

	f := &Filer{
		owner:     cfg.Owner,
		repo:      cfg.Repo,
		labels:    cfg.Labels,
		maxIssues: cfg.MaxIssues,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.Named("issues"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		if cfg.Token == "" {
			return nil, errors.New("a GitHub token is required (github.token or GITHUB_TOKEN)")
		}
		f.client = github.NewClient(nil).WithAuthToken(cfg.Token)
	}
	return f, nil
}

// Plan returns a draft for every failed high-severity finding, worst first,
// capped at the configured maximum. It makes no API calls.
func Plan(report *schemas.Report, labels []string, maxIssues int) []Draft {
	var drafts []Draft
	for _, f := range results.Prioritize(report.Findings) {
		if f.Status != schemas.StatusFail || f.Severity != schemas.SeverityHigh {
			continue
		}
		if maxIssues > 0 && len(drafts) == maxIssues {
			break
		}
		drafts = append(drafts, Draft{
			Title:  issueTitle(report.URL, f),
			Body:   issueBody(report, f),
			Labels: labels,
		})
	}
	return drafts
}

// File creates the planned issues. Titles that already exist as open issues
// carrying the configured labels are reported as Existing and skipped.
func (f *Filer) File(ctx context.Context, report *schemas.Report) ([]Filed, error) {
	drafts := Plan(report, f.labels, f.maxIssues)
	if len(drafts) == 0 {
		f.logger.Info("No high-severity failures to file.")
		return nil, nil
	}

	open, err := f.openIssues(ctx)
	if err != nil {
		return nil, err
	}

	var out []Filed
	for _, d := range drafts {
		if existing, ok := open[d.Title]; ok {
			f.logger.Info("Issue already open, skipping.", zap.String("title", d.Title), zap.Int("number", existing.GetNumber()))
			out = append(out, Filed{Title: d.Title, Number: existing.GetNumber(), URL: existing.GetHTMLURL(), Existing: true})
			continue
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return out, fmt.Errorf("rate limiter wait failed: %w", err)
		}
		req := &github.IssueRequest{Title: github.String(d.Title), Body: github.String(d.Body)}
		if len(d.Labels) > 0 {
			labels := append([]string(nil), d.Labels...)
			req.Labels = &labels
		}
		issue, _, err := f.client.Issues.Create(ctx, f.owner, f.repo, req)
		if err != nil {
			return out, fmt.Errorf("failed to create issue %q: %w", d.Title, err)
		}
		f.logger.Info("Filed issue.", zap.String("title", d.Title), zap.Int("number", issue.GetNumber()))
		out = append(out, Filed{Title: d.Title, Number: issue.GetNumber(), URL: issue.GetHTMLURL()})
	}
	return out, nil
}

// openIssues indexes the repository's open issues by title.
func (f *Filer) openIssues(ctx context.Context) (map[string]*github.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Labels:      f.labels,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	byTitle := make(map[string]*github.Issue)
	for {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
		page, resp, err := f.client.Issues.ListByRepo(ctx, f.owner, f.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list open issues: %w", err)
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			byTitle[issue.GetTitle()] = issue
		}
		if resp == nil || resp.NextPage == 0 {
			return byTitle, nil
		}
		opts.Page = resp.NextPage
	}
}

func issueTitle(pageURL string, f schemas.Finding) string {
	host := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("%s %s: %s on %s", titlePrefix, f.Category, f.Test, host)
}

func issueBody(report *schemas.Report, f schemas.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Page:** %s\n", report.URL)
	fmt.Fprintf(&b, "**Check:** %s (%s)\n", f.Test, f.Category)
	fmt.Fprintf(&b, "**Score:** %.1f/10, severity %s\n\n", f.Score, f.Severity)
	b.WriteString(f.Details)
	b.WriteString("\n")

	if len(f.Elements) > 0 {
		b.WriteString("\n### Affected elements\n\n")
		for _, el := range f.Elements {
			fmt.Fprintf(&b, "- `%s`", el.Selector)
			if el.Description != "" {
				fmt.Fprintf(&b, ": %s", el.Description)
			}
			b.WriteString("\n")
		}
	}
	if len(f.Recommendations) > 0 {
		b.WriteString("\n### Recommendations\n\n")
		for _, rec := range f.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}
	fmt.Fprintf(&b, "\n_Audit run %s on %s, overall score %d/100._\n",
		report.RunID, report.TestDate.UTC().Format(time.RFC3339), report.OverallScore)
	return b.String()
}
