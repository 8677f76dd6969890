package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	config "github.com/postvault/postvault/configs"
	"github.com/postvault/postvault/internal/models"
	"github.com/postvault/postvault/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var publishNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

// fakeGraph simulates the container-create / status / publish endpoints.
type fakeGraph struct {
	mu             sync.Mutex
	created        []map[string]interface{}
	statusSequence []string
	statusCalls    int
	publishStatus  int
	publishBody    string
	publishCalls   int
	media          []map[string]string
}

func (g *fakeGraph) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/acct1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.publishCalls++
		if g.publishStatus != 0 {
			w.WriteHeader(g.publishStatus)
			fmt.Fprint(w, g.publishBody)
			return
		}
		fmt.Fprint(w, `{"id":"ig-post-1","permalink":"https://instagram.com/p/abc"}`)
	})

	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]interface{}{"data": g.media})
			return
		}
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		g.created = append(g.created, payload)
		fmt.Fprintf(w, `{"id":"container-%d"}`, len(g.created))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/container-") {
			http.NotFound(w, r)
			return
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		status := "READY"
		if g.statusCalls < len(g.statusSequence) {
			status = g.statusSequence[g.statusCalls]
		}
		g.statusCalls++
		fmt.Fprintf(w, `{"id":"%s","status_code":"%s"}`, strings.TrimPrefix(r.URL.Path, "/"), status)
	})

	return mux
}

func testCredentials(t *testing.T) *models.Credentials {
	encrypted, err := utils.Encrypt([]byte("graph-token"), []byte(testSecret))
	require.NoError(t, err)
	return &models.Credentials{
		Connected:   true,
		AccountID:   "acct1",
		AccessToken: encrypted,
		RefreshedAt: publishNow,
	}
}

func newTestInstagramService(server *httptest.Server) *instagramService {
	return &instagramService{
		cfg:          config.Config{SecretKey: testSecret},
		baseURL:      server.URL,
		client:       server.Client(),
		pollInterval: time.Millisecond,
		childDelay:   0,
		now:          func() time.Time { return publishNow },
	}
}

func singleImageDraft() *models.Draft {
	return &models.Draft{
		ID:        "d1",
		Caption:   "hello world",
		ImageURLs: []string{"https://cdn.example.com/1.jpg"},
		UpdatedAt: publishNow,
	}
}

func TestPublishSlotSingleImage(t *testing.T) {
	graph := &fakeGraph{statusSequence: []string{"IN_PROGRESS", "IN_PROGRESS", "READY"}}
	server := httptest.NewServer(graph.handler(t))
	defer server.Close()

	svc := newTestInstagramService(server)
	outcome := svc.PublishSlot(context.Background(), singleImageDraft(), testCredentials(t))

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.Equal(t, "ig-post-1", outcome.ExternalPostID)
	assert.Equal(t, "https://instagram.com/p/abc", outcome.Permalink)
	assert.False(t, outcome.RateLimitRecovered)

	require.Len(t, graph.created, 1)
	assert.Equal(t, "hello world", graph.created[0]["caption"])
	assert.Equal(t, 3, graph.statusCalls)
	assert.Equal(t, 1, graph.publishCalls)
}

func TestPublishSlotCarouselCreatesChildrenThenParent(t *testing.T) {
	graph := &fakeGraph{}
	server := httptest.NewServer(graph.handler(t))
	defer server.Close()

	draft := &models.Draft{
		ID:      "d2",
		Caption: "three shots",
		ImageURLs: []string{
			"https://cdn.example.com/1.jpg",
			"https://cdn.example.com/2.jpg",
			"https://cdn.example.com/3.jpg",
		},
		UpdatedAt: publishNow,
	}

	svc := newTestInstagramService(server)
	outcome := svc.PublishSlot(context.Background(), draft, testCredentials(t))

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	require.Len(t, graph.created, 4)

	for i := 0; i < 3; i++ {
		assert.Equal(t, true, graph.created[i]["is_carousel_item"])
		assert.NotContains(t, graph.created[i], "caption")
	}
	parent := graph.created[3]
	assert.Equal(t, "CAROUSEL", parent["media_type"])
	assert.Equal(t, "three shots", parent["caption"])
	children, ok := parent["children"].([]interface{})
	require.True(t, ok)
	assert.Len(t, children, 3)
}

func TestPublishSlotContainerErrorIsTerminal(t *testing.T) {
	graph := &fakeGraph{statusSequence: []string{"IN_PROGRESS", "ERROR"}}
	server := httptest.NewServer(graph.handler(t))
	defer server.Close()

	svc := newTestInstagramService(server)
	outcome := svc.PublishSlot(context.Background(), singleImageDraft(), testCredentials(t))

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "terminal state ERROR")
	assert.Zero(t, graph.publishCalls)
}

func TestPublishSlotRateLimitRecoversViaVerification(t *testing.T) {
	graph := &fakeGraph{
		publishStatus: http.StatusBadRequest,
		publishBody:   `{"error":{"message":"Application request limit reached","code":4}}`,
		media: []map[string]string{
			{
				"id":        "ig-recovered",
				"permalink": "https://instagram.com/p/recovered",
				"timestamp": publishNow.Add(-40 * time.Second).Format(time.RFC3339),
			},
		},
	}
	server := httptest.NewServer(graph.handler(t))
	defer server.Close()

	svc := newTestInstagramService(server)
	outcome := svc.PublishSlot(context.Background(), singleImageDraft(), testCredentials(t))

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.True(t, outcome.RateLimitRecovered)
	assert.Equal(t, "ig-recovered", outcome.ExternalPostID)
	// The publish call itself ran once and was never blindly retried.
	assert.Equal(t, 1, graph.publishCalls)
}

func TestPublishSlotRateLimitWithoutRecentMediaFails(t *testing.T) {
	graph := &fakeGraph{
		publishStatus: http.StatusBadRequest,
		publishBody:   `{"error":{"message":"Application request limit reached","code":4}}`,
		media: []map[string]string{
			{
				"id":        "ig-old",
				"permalink": "https://instagram.com/p/old",
				"timestamp": publishNow.Add(-time.Hour).Format(time.RFC3339),
			},
		},
	}
	server := httptest.NewServer(graph.handler(t))
	defer server.Close()

	svc := newTestInstagramService(server)
	outcome := svc.PublishSlot(context.Background(), singleImageDraft(), testCredentials(t))

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "no recent media")
	assert.Equal(t, 1, graph.publishCalls)
}

func TestPublishSlotWithoutCredentials(t *testing.T) {
	svc := &instagramService{cfg: config.Config{SecretKey: testSecret}, now: func() time.Time { return publishNow }}

	outcome := svc.PublishSlot(context.Background(), singleImageDraft(), nil)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "no connected publishing account")

	outcome = svc.PublishSlot(context.Background(), singleImageDraft(), &models.Credentials{Connected: false})
	assert.False(t, outcome.Success)
}

func TestPublishSlotContainerCreateRetries(t *testing.T) {
	origBackoff := containerBackoff
	containerBackoff = []time.Duration{time.Millisecond}
	defer func() { containerBackoff = origBackoff }()

	var failures int
	graph := &fakeGraph{}
	inner := graph.handler(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/media") && failures < 2 {
			failures++
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"transient","code":2}}`)
			return
		}
		inner.ServeHTTP(w, r)
	}))
	defer server.Close()

	svc := newTestInstagramService(server)
	outcome := svc.PublishSlot(context.Background(), singleImageDraft(), testCredentials(t))

	require.True(t, outcome.Success, "outcome error: %s", outcome.Error)
	assert.Equal(t, 2, failures)
	require.Len(t, graph.created, 1)
}
