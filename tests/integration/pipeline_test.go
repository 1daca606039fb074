package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/orgpulse/orgpulse/internal/extract"
	"github.com/orgpulse/orgpulse/internal/stats"
	"github.com/orgpulse/orgpulse/internal/testutil"
	"github.com/orgpulse/orgpulse/internal/transform"
	"github.com/orgpulse/orgpulse/pkg/cache"
	"github.com/orgpulse/orgpulse/pkg/github"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// setupMockOrg configures the mock with a 3-member org where alice has 12
// PRs against org repos, bob has 2, and carol has none.
func setupMockOrg(t *testing.T, mock *testutil.MockGitHub) {
	t.Helper()

	joined := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, login := range []string{"alice", "bob", "carol"} {
		body := fmt.Sprintf(`{"state":"active","created_at":%q}`,
			joined.AddDate(0, i, 0).Format(time.RFC3339))
		mock.SetResponse("/orgs/acme/memberships/"+login, testutil.NewHealthyResponse(body))
	}

	prCounts := map[string]int{"alice": 12, "bob": 2, "carol": 0}

	mock.SetHandler("/graphql", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			t.Errorf("Bad GraphQL request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if strings.Contains(payload.Query, "membersWithRole") {
			fmt.Fprint(w, `{"data":{"organization":{"membersWithRole":{`+
				`"nodes":[{"login":"alice","name":"Alice"},{"login":"bob","name":"Bob"},{"login":"carol","name":"Carol"}],`+
				`"pageInfo":{"endCursor":"","hasNextPage":false}}}}}`)
			return
		}

		login, _ := payload.Variables["login"].(string)
		nodes := make([]string, 0, prCounts[login])
		for n := 1; n <= prCounts[login]; n++ {
			created := joined.AddDate(0, 0, n*3).Format(time.RFC3339)
			nodes = append(nodes, fmt.Sprintf(
				`{"number":%d,"title":"PR %d","createdAt":%q,"url":"https://example.com/%s/%d",`+
					`"repository":{"name":"widget","owner":{"login":"acme"}}}`,
				n, n, created, login, n))
		}
		fmt.Fprintf(w, `{"data":{"user":{"pullRequests":{"nodes":[%s],"pageInfo":{"endCursor":"","hasNextPage":false}}}}}`,
			strings.Join(nodes, ","))
	})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func newPipelineClient(t *testing.T, mock *testutil.MockGitHub, mgr *cache.Manager) *github.Client {
	t.Helper()

	cfg := github.DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.Backoff = time.Millisecond
	cfg.RequestsPerSecond = 1000
	cfg.Cache = mgr

	client, err := github.New(cfg)
	if err != nil {
		t.Fatalf("New client failed: %v", err)
	}
	return client
}

func TestFullPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	setupMockOrg(t, mock)

	client := newPipelineClient(t, mock, cache.NewManager(redisClient))
	ext := extract.New(client, 5)
	ctx := context.Background()

	members, err := ext.FetchMembers(ctx, "acme")
	if err != nil {
		t.Fatalf("FetchMembers failed: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("Expected 3 members, got %d", len(members))
	}

	members, err = ext.EnrichJoinDates(ctx, "acme", members)
	if err != nil {
		t.Fatalf("EnrichJoinDates failed: %v", err)
	}
	members, err = ext.EnrichContributions(ctx, "acme", members, 10)
	if err != nil {
		t.Fatalf("EnrichContributions failed: %v", err)
	}

	enriched := transform.ComputeDeltas(members)
	rollup := transform.Prepare(enriched)
	report := stats.Build(rollup, 6)

	if report.TotalMembers != 3 || report.WithJoinDate != 3 {
		t.Errorf("Member counts wrong: %+v", report)
	}
	if report.WithFirst != 2 {
		t.Errorf("WithFirst = %d, want 2 (alice and bob)", report.WithFirst)
	}
	if report.WithTenth != 1 {
		t.Errorf("WithTenth = %d, want 1 (alice only)", report.WithTenth)
	}
	if report.FirstPR.Count != 2 || report.FirstPR.Min <= 0 {
		t.Errorf("FirstPR summary wrong: %+v", report.FirstPR)
	}
}

func TestMembershipResponsesCached(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/orgs/acme/memberships/alice",
		testutil.NewHealthyResponse(`{"state":"active","created_at":"2023-01-15T10:00:00Z"}`))

	client := newPipelineClient(t, mock, cache.NewManager(redisClient))
	ctx := context.Background()

	first, err := client.Get(ctx, "orgs/acme/memberships/alice", nil)
	if err != nil {
		t.Fatalf("First Get failed: %v", err)
	}

	// A fresh entry exists now, so the second call revalidates with
	// If-None-Match and the mock's fixed ETag still matches.
	mock.SetHandler("/orgs/acme/memberships/alice", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"test-etag-123"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		t.Error("Second request should have been conditional")
		w.Write([]byte(`{}`))
	})

	second, err := client.Get(ctx, "orgs/acme/memberships/alice", nil)
	if err != nil {
		t.Fatalf("Second Get failed: %v", err)
	}
	if string(first) != string(second) {
		t.Error("Cached body must match the original response")
	}
	if mock.GetConditionalCount() != 1 {
		t.Errorf("Expected 1 conditional request, got %d", mock.GetConditionalCount())
	}
}
