package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kibotu/git-history-timeline/pkg/config"
)

// newTestGitHubService points a client at a fake API server with
// retry timings shrunk for tests
func newTestGitHubService(t *testing.T, handler http.Handler) *GitHubService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	service := NewGitHubService("test-token", config.FetchConfig{
		RequestsPerMinute: 60000,
		MaxRetries:        3,
	})
	service.backoffBase = time.Millisecond
	service.rateLimitMargin = 5 * time.Millisecond
	service.searchLimiter = rate.NewLimiter(rate.Inf, 1)

	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	service.client.BaseURL = baseURL

	return service
}

func TestListAccessibleRepositoriesFollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id":2,"name":"beta","full_name":"octo/beta","owner":{"login":"octo"}}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<http://%s/user/repos?page=2>; rel="next"`, r.Host))
		fmt.Fprint(w, `[{"id":1,"name":"alpha","full_name":"octo/alpha","owner":{"login":"octo"}}]`)
	})

	service := newTestGitHubService(t, mux)

	repos, err := service.ListAccessibleRepositories(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "octo/alpha", repos[0].GetFullName())
	assert.Equal(t, "octo/beta", repos[1].GetFullName())
}

func TestWithRetryBacksOffOnSecondaryLimit(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"message":"slow down"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"login":"octo"}`)
	})

	service := newTestGitHubService(t, mux)

	login, err := service.AuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octo", login)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryGivesUpAfterBudget(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"message":"slow down"}`)
	})

	service := newTestGitHubService(t, mux)

	_, err := service.AuthenticatedUser(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxRetries))
	// initial request plus maxRetries backoff attempts
	assert.Equal(t, 4, attempts)
}

func TestWithRetryWaitsForPrimaryQuotaReset(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-RateLimit-Limit", "5000")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(-time.Second).Unix()))
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		fmt.Fprint(w, `{"login":"octo"}`)
	})

	service := newTestGitHubService(t, mux)

	login, err := service.AuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octo", login)
	// the quota wait retries the same request without consuming the
	// backoff budget
	assert.Equal(t, 2, attempts)
}

func TestListBranchesRemembersDeniedRepositories(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/private/branches", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	service := newTestGitHubService(t, mux)

	_, err := service.ListBranches(context.Background(), "octo", "private")
	require.Error(t, err)
	assert.True(t, IsSkippableRepoError(err))

	_, err = service.ListBranches(context.Background(), "octo", "private")
	require.Error(t, err)
	assert.True(t, IsSkippableRepoError(err))
	assert.Equal(t, 1, calls, "second lookup must be served from the deny memo")
}

func TestErrorClassification(t *testing.T) {
	makeErr := func(status int) error {
		return &github.ErrorResponse{
			Response: &http.Response{
				StatusCode: status,
				Request:    &http.Request{Method: http.MethodGet, URL: &url.URL{}},
			},
		}
	}

	testCases := []struct {
		name            string
		err             error
		skippableRepo   bool
		skippableBranch bool
		searchExhausted bool
	}{
		{"Forbidden", makeErr(http.StatusForbidden), true, false, false},
		{"Not found", makeErr(http.StatusNotFound), true, true, false},
		{"Conflict empty repo", makeErr(http.StatusConflict), false, true, false},
		{"Query too broad", makeErr(http.StatusUnprocessableEntity), false, false, true},
		{"Server error", makeErr(http.StatusInternalServerError), false, false, false},
		{"Plain error", errors.New("boom"), false, false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.skippableRepo, IsSkippableRepoError(tc.err))
			assert.Equal(t, tc.skippableBranch, IsSkippableBranchError(tc.err))
			assert.Equal(t, tc.searchExhausted, IsSearchExhausted(tc.err))
		})
	}
}
