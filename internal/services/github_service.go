package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/kibotu/git-history-timeline/pkg/config"
	"github.com/kibotu/git-history-timeline/pkg/logger"
)

// ErrMaxRetries is returned after the secondary rate limit backoff
// budget has been exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

const (
	perPage = 100

	// searchInterval spaces commit search requests to respect the
	// search endpoint's stricter per-minute budget.
	searchInterval = 2500 * time.Millisecond

	// rateLimitMargin is added on top of the reset timestamp before
	// retrying after an exhausted primary quota.
	rateLimitMargin = 2 * time.Second

	memoCacheSize = 1000
	userMemoTTL   = 10 * time.Minute
	denyMemoTTL   = time.Hour
)

// GitHubService wraps the GitHub REST client with authentication,
// client-side pacing, pagination and rate limit recovery.
type GitHubService struct {
	client          *github.Client
	limiter         *rate.Limiter
	searchLimiter   *rate.Limiter
	memo            *memoCache
	maxRetries      int
	backoffBase     time.Duration
	rateLimitMargin time.Duration
	log             *logrus.Entry
}

// NewGitHubService creates a client authenticated with the given token
func NewGitHubService(token string, fetchCfg config.FetchConfig) *GitHubService {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	requestsPerMinute := fetchCfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 80
	}
	maxRetries := fetchCfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	memo, _ := newMemoCache(memoCacheSize)

	return &GitHubService{
		client:          github.NewClient(tc),
		limiter:         rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		searchLimiter:   rate.NewLimiter(rate.Every(searchInterval), 1),
		memo:            memo,
		maxRetries:      maxRetries,
		backoffBase:     time.Second,
		rateLimitMargin: rateLimitMargin,
		log:             logger.WithField("component", "github"),
	}
}

// withRetry issues a request with rate limit recovery. An exhausted
// primary quota suspends until the reset instant plus a margin and does
// not consume a retry; secondary/abuse limiting backs off 2^attempt
// seconds for up to maxRetries attempts.
func (s *GitHubService) withRetry(ctx context.Context, operation string, fn func() (*github.Response, error)) error {
	backoffAttempt := 0

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := fn()
		if err == nil {
			return nil
		}

		var rateLimitErr *github.RateLimitError
		if errors.As(err, &rateLimitErr) {
			wait := time.Until(rateLimitErr.Rate.Reset.Time) + s.rateLimitMargin
			if wait < s.rateLimitMargin {
				wait = s.rateLimitMargin
			}
			s.log.WithFields(logrus.Fields{
				"operation": operation,
				"wait":      wait.String(),
			}).Warn("Primary rate limit exhausted, waiting for reset")
			if err := sleepContext(ctx, wait); err != nil {
				return err
			}
			continue
		}

		var abuseErr *github.AbuseRateLimitError
		if errors.As(err, &abuseErr) || (resp != nil && resp.StatusCode == http.StatusTooManyRequests) {
			backoffAttempt++
			if backoffAttempt > s.maxRetries {
				return fmt.Errorf("%s: %w", operation, ErrMaxRetries)
			}
			wait := s.backoffBase * time.Duration(1<<backoffAttempt) // 2^attempt seconds
			if abuseErr != nil && abuseErr.RetryAfter != nil && *abuseErr.RetryAfter > wait {
				wait = *abuseErr.RetryAfter
			}
			s.log.WithFields(logrus.Fields{
				"operation": operation,
				"attempt":   backoffAttempt,
				"wait":      wait.String(),
			}).Warn("Secondary rate limit hit, backing off")
			if err := sleepContext(ctx, wait); err != nil {
				return err
			}
			continue
		}

		return fmt.Errorf("%s: %w", operation, err)
	}
}

// AuthenticatedUser resolves the login of the token owner
func (s *GitHubService) AuthenticatedUser(ctx context.Context) (string, error) {
	if login, ok := s.memo.Get("user:self"); ok {
		return login.(string), nil
	}

	var user *github.User
	err := s.withRetry(ctx, "get authenticated user", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		user, resp, err = s.client.Users.Get(ctx, "")
		return resp, err
	})
	if err != nil {
		return "", err
	}

	login := user.GetLogin()
	s.memo.Set("user:self", login, userMemoTTL)
	return login, nil
}

// ListAccessibleRepositories enumerates every repository the token can
// see: owned, organization member and collaborator.
func (s *GitHubService) ListAccessibleRepositories(ctx context.Context) ([]*github.Repository, error) {
	opt := &github.RepositoryListOptions{
		Affiliation: "owner,collaborator,organization_member",
		Sort:        "pushed",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var allRepos []*github.Repository
	for {
		var repos []*github.Repository
		var resp *github.Response
		err := s.withRetry(ctx, "list repositories", func() (*github.Response, error) {
			var err error
			repos, resp, err = s.client.Repositories.List(ctx, "", opt)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		allRepos = append(allRepos, repos...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return allRepos, nil
}

// ListBranches enumerates all branches of a repository. Repositories
// that recently answered with an access error are served the same
// error from memory instead of a new request.
func (s *GitHubService) ListBranches(ctx context.Context, owner, repo string) ([]*github.Branch, error) {
	denyKey := "denied:" + owner + "/" + repo
	if cached, ok := s.memo.Get(denyKey); ok {
		return nil, cached.(error)
	}

	opt := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var allBranches []*github.Branch
	for {
		var branches []*github.Branch
		var resp *github.Response
		err := s.withRetry(ctx, "list branches", func() (*github.Response, error) {
			var err error
			branches, resp, err = s.client.Repositories.ListBranches(ctx, owner, repo, opt)
			return resp, err
		})
		if err != nil {
			if IsSkippableRepoError(err) {
				s.memo.Set(denyKey, err, denyMemoTTL)
			}
			return nil, err
		}
		allBranches = append(allBranches, branches...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return allBranches, nil
}

// ListBranchCommits fetches all commits authored by the given user on
// one branch, in page order.
func (s *GitHubService) ListBranchCommits(ctx context.Context, owner, repo, branch, author string) ([]*github.RepositoryCommit, error) {
	opt := &github.CommitsListOptions{
		SHA:         branch,
		Author:      author,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var allCommits []*github.RepositoryCommit
	for {
		var commits []*github.RepositoryCommit
		var resp *github.Response
		err := s.withRetry(ctx, "list commits", func() (*github.Response, error) {
			var err error
			commits, resp, err = s.client.Repositories.ListCommits(ctx, owner, repo, opt)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		allCommits = append(allCommits, commits...)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return allCommits, nil
}

// SearchCommits fetches one page of the cross-repository commit search
// for the given author, newest first. Calls are spaced by the search
// limiter to respect the endpoint's per-minute budget.
func (s *GitHubService) SearchCommits(ctx context.Context, author string, page int) (*github.CommitsSearchResult, error) {
	if err := s.searchLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	opt := &github.SearchOptions{
		Sort:        "author-date",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: perPage, Page: page},
	}

	var result *github.CommitsSearchResult
	err := s.withRetry(ctx, "search commits", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		result, resp, err = s.client.Search.Commits(ctx, "author:"+author, opt)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// errorStatus extracts the HTTP status carried by a GitHub API error
func errorStatus(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

// IsSkippableRepoError reports whether a repository-level failure
// should be skipped instead of aborting the run (no access, gone).
func IsSkippableRepoError(err error) bool {
	status := errorStatus(err)
	return status == http.StatusForbidden || status == http.StatusNotFound
}

// IsSkippableBranchError reports whether a branch-level failure should
// be skipped (empty repository, missing ref).
func IsSkippableBranchError(err error) bool {
	status := errorStatus(err)
	return status == http.StatusNotFound || status == http.StatusConflict
}

// IsSearchExhausted reports whether the search API rejected the query
// as too broad; the search phase stops gracefully on it.
func IsSearchExhausted(err error) bool {
	return errorStatus(err) == http.StatusUnprocessableEntity
}

// sleepContext waits for the duration or until the context is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
