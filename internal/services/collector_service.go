package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kibotu/git-history-timeline/internal/cache"
	"github.com/kibotu/git-history-timeline/internal/models"
	"github.com/kibotu/git-history-timeline/pkg/logger"
)

// ErrInvalidCommit marks API commit records missing required fields;
// such records are logged and skipped at the ingestion boundary.
var ErrInvalidCommit = errors.New("commit record missing required fields")

// RepoFilter selects which acquisition phases run and which
// repositories phase one considers.
type RepoFilter string

const (
	RepoFilterAll           RepoFilter = "all"
	RepoFilterOwned         RepoFilter = "owned"
	RepoFilterForks         RepoFilter = "forks"
	RepoFilterContributions RepoFilter = "contributions"
)

// ParseRepoFilter validates a filter name from the command line
func ParseRepoFilter(value string) (RepoFilter, error) {
	switch RepoFilter(value) {
	case RepoFilterAll, RepoFilterOwned, RepoFilterForks, RepoFilterContributions:
		return RepoFilter(value), nil
	}
	return "", fmt.Errorf("unknown repository filter %q (expected all, owned, forks or contributions)", value)
}

// CollectOptions control one collection run
type CollectOptions struct {
	Username     string // empty means the token owner
	Filter       RepoFilter
	ForceRefresh bool
	UseCache     bool // bypass the network entirely
}

// CollectResult is the payload handed to external renderers
type CollectResult struct {
	Username string           `json:"username"`
	Commits  []*models.Commit `json:"commits"`
}

// CollectorService reconstructs the user's deduplicated commit history
// in two phases: repositories the token can list, then a
// cross-repository author search for commits merged elsewhere.
type CollectorService struct {
	github         *GitHubService
	store          cache.Store
	concurrency    int
	searchMaxPages int

	// mu guards the shared cache object; repository units run on
	// parallel goroutines.
	mu  sync.Mutex
	log *logrus.Entry
}

func NewCollectorService(githubService *GitHubService, store cache.Store, concurrency, searchMaxPages int) *CollectorService {
	if concurrency <= 0 {
		concurrency = 5
	}
	if searchMaxPages <= 0 {
		searchMaxPages = 10
	}
	return &CollectorService{
		github:         githubService,
		store:          store,
		concurrency:    concurrency,
		searchMaxPages: searchMaxPages,
		log:            logger.WithField("component", "collector"),
	}
}

// Collect runs the configured acquisition phases and persists the
// merged state. With UseCache set it serves the last persisted run
// without network I/O.
func (s *CollectorService) Collect(ctx context.Context, opts CollectOptions) (*CollectResult, error) {
	runLog := s.log.WithField("run_id", uuid.New().String())

	if opts.UseCache {
		state, err := s.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load cache: %w", err)
		}
		username := state.Username
		if opts.Username != "" {
			username = opts.Username
		}
		if username == "" {
			return nil, fmt.Errorf("cache holds no previous run; run a fetch first")
		}
		runLog.WithFields(logrus.Fields{
			"username": username,
			"commits":  len(state.Commits),
		}).Info("Serving commit history from cache")
		return buildResult(username, state), nil
	}

	username := opts.Username
	if username == "" {
		resolved, err := s.github.AuthenticatedUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve authenticated user: %w", err)
		}
		username = resolved
	}
	runLog = runLog.WithField("username", username)

	var state *models.Cache
	if opts.ForceRefresh {
		state = models.NewCache()
		runLog.Info("Forced refresh, starting with an empty cache")
	} else {
		loaded, err := s.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load cache: %w", err)
		}
		state = loaded
	}
	state.Username = username

	if opts.Filter != RepoFilterContributions {
		if err := s.collectRepositories(ctx, username, opts.Filter, opts.ForceRefresh, state, runLog); err != nil {
			return nil, err
		}
	}

	if opts.Filter == RepoFilterAll || opts.Filter == RepoFilterContributions {
		if err := s.collectContributions(ctx, username, state, runLog); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to persist cache: %w", err)
	}

	runLog.WithFields(logrus.Fields{
		"commits":      len(state.Commits),
		"repositories": len(state.Snapshots),
	}).Info("Collection run finished")

	return buildResult(username, state), nil
}

// collectRepositories is phase one: enumerate accessible repositories,
// skip those whose push state is unchanged, and fetch the rest under
// the concurrency limit.
func (s *CollectorService) collectRepositories(ctx context.Context, username string, filter RepoFilter, forceRefresh bool, state *models.Cache, runLog *logrus.Entry) error {
	repos, err := s.github.ListAccessibleRepositories(ctx)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	eligible := filterRepositories(repos, filter, username)

	var refetch []*github.Repository
	cached := 0
	for _, repo := range eligible {
		if state.NeedsRefetch(repo.GetFullName(), repo.GetPushedAt().Time, forceRefresh) {
			refetch = append(refetch, repo)
		} else {
			cached++
		}
	}

	runLog.WithFields(logrus.Fields{
		"eligible": len(eligible),
		"refetch":  len(refetch),
		"cached":   cached,
	}).Info("Repository scan planned")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, repo := range refetch {
		repo := repo
		g.Go(func() error {
			return s.fetchRepository(gctx, username, repo, state, runLog)
		})
	}

	return g.Wait()
}

// fetchRepository enumerates a repository's branches and collects the
// user's commits from each. Access failures are logged and skipped so
// one inaccessible unit never aborts its siblings.
func (s *CollectorService) fetchRepository(ctx context.Context, username string, repo *github.Repository, state *models.Cache, runLog *logrus.Entry) error {
	fullName := repo.GetFullName()
	owner := repo.GetOwner().GetLogin()
	name := repo.GetName()

	branches, err := s.github.ListBranches(ctx, owner, name)
	if err != nil {
		if IsSkippableRepoError(err) {
			runLog.WithError(err).WithField("repository", fullName).Warn("Skipping inaccessible repository")
			return nil
		}
		return fmt.Errorf("failed to list branches of %s: %w", fullName, err)
	}

	added := 0
	for _, branch := range branches {
		branchName := branch.GetName()
		commits, err := s.github.ListBranchCommits(ctx, owner, name, branchName, username)
		if err != nil {
			if IsSkippableBranchError(err) || IsSkippableRepoError(err) {
				runLog.WithError(err).WithFields(logrus.Fields{
					"repository": fullName,
					"branch":     branchName,
				}).Warn("Skipping branch")
				continue
			}
			return fmt.Errorf("failed to list commits of %s@%s: %w", fullName, branchName, err)
		}

		for _, apiCommit := range commits {
			commit, err := commitFromRepository(apiCommit, fullName, branchName)
			if err != nil {
				runLog.WithError(err).WithField("repository", fullName).Warn("Dropping invalid commit record")
				continue
			}
			s.mu.Lock()
			if state.AddCommit(commit) {
				added++
			}
			s.mu.Unlock()
		}
	}

	// Snapshot only after every branch has been processed, so an
	// interrupted repository is refetched next run.
	s.mu.Lock()
	state.SetSnapshot(fullName, repo.GetPushedAt().Time)
	s.mu.Unlock()

	runLog.WithFields(logrus.Fields{
		"repository": fullName,
		"branches":   len(branches),
		"new":        added,
	}).Debug("Repository fetched")

	return nil
}

// collectContributions is phase two: the cross-repository commit
// search, which surfaces commits merged into repositories the token
// cannot list. The search API caps results at 1000, ten pages of 100.
func (s *CollectorService) collectContributions(ctx context.Context, username string, state *models.Cache, runLog *logrus.Entry) error {
	collected := 0

	for page := 1; page <= s.searchMaxPages; page++ {
		result, err := s.github.SearchCommits(ctx, username, page)
		if err != nil {
			if IsSearchExhausted(err) {
				runLog.WithError(err).Warn("Search quota exceeded, keeping what was collected")
				break
			}
			return fmt.Errorf("commit search failed: %w", err)
		}

		for _, item := range result.Commits {
			commit, err := commitFromSearchResult(item)
			if err != nil {
				runLog.WithError(err).Warn("Dropping invalid search result")
				continue
			}
			s.mu.Lock()
			state.AddCommit(commit)
			s.mu.Unlock()
		}

		collected += len(result.Commits)
		if len(result.Commits) < perPage {
			break
		}
		if result.GetTotal() > 0 && collected >= result.GetTotal() {
			break
		}
	}

	now := time.Now().UTC()
	state.LastSearch = &now

	runLog.WithField("results", collected).Info("Contribution search finished")
	return nil
}

// filterRepositories applies the repo-filter predicate of phase one
func filterRepositories(repos []*github.Repository, filter RepoFilter, username string) []*github.Repository {
	var filtered []*github.Repository
	for _, repo := range repos {
		switch filter {
		case RepoFilterOwned:
			if !repo.GetFork() && strings.EqualFold(repo.GetOwner().GetLogin(), username) {
				filtered = append(filtered, repo)
			}
		case RepoFilterForks:
			if repo.GetFork() {
				filtered = append(filtered, repo)
			}
		default:
			filtered = append(filtered, repo)
		}
	}
	return filtered
}

// commitFromRepository validates a branch listing record into a Commit
func commitFromRepository(apiCommit *github.RepositoryCommit, repoFullName, branch string) (*models.Commit, error) {
	sha := apiCommit.GetSHA()
	date := apiCommit.GetCommit().GetAuthor().GetDate()
	if sha == "" || date.IsZero() {
		return nil, fmt.Errorf("%w: sha=%q", ErrInvalidCommit, sha)
	}
	return models.NewCommit(
		sha,
		firstLine(apiCommit.GetCommit().GetMessage()),
		date.Time,
		repoFullName,
		&branch,
		apiCommit.GetHTMLURL(),
	), nil
}

// commitFromSearchResult validates a search hit into a Commit. Search
// results carry no branch information, so the branch stays absent.
func commitFromSearchResult(item *github.CommitResult) (*models.Commit, error) {
	sha := item.GetSHA()
	date := item.GetCommit().GetAuthor().GetDate()
	if sha == "" || date.IsZero() {
		return nil, fmt.Errorf("%w: sha=%q", ErrInvalidCommit, sha)
	}
	return models.NewCommit(
		sha,
		firstLine(item.GetCommit().GetMessage()),
		date.Time,
		item.GetRepository().GetFullName(),
		nil,
		item.GetHTMLURL(),
	), nil
}

// firstLine trims a commit message to its subject line
func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return strings.TrimSpace(message[:idx])
	}
	return strings.TrimSpace(message)
}

// buildResult orders the dedup set newest first for renderers
func buildResult(username string, state *models.Cache) *CollectResult {
	commits := state.CommitList()
	sort.Slice(commits, func(i, j int) bool {
		if !commits[i].AuthorDate.Equal(commits[j].AuthorDate) {
			return commits[i].AuthorDate.After(commits[j].AuthorDate)
		}
		return commits[i].SHA < commits[j].SHA
	})
	return &CollectResult{Username: username, Commits: commits}
}
