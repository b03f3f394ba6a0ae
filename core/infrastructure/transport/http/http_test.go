package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falkordb/falkordb-mcp/core/application/auth"
	"github.com/falkordb/falkordb-mcp/core/application/events"
	"github.com/falkordb/falkordb-mcp/core/application/services"
	"github.com/falkordb/falkordb-mcp/core/domain"
	httpmiddleware "github.com/falkordb/falkordb-mcp/core/infrastructure/transport/http/middleware"
	apperrors "github.com/falkordb/falkordb-mcp/core/shared/errors"
)

const testKey = "test-key"

type fakeStore struct {
	mu      sync.Mutex
	queries []string
	execute func(query string, params map[string]any, graph string) (*domain.GraphQueryResult, error)
	graphs  []domain.GraphDescriptor
	pingErr error
}

func (f *fakeStore) Execute(_ context.Context, query string, params map[string]any, graph string) (*domain.GraphQueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.execute != nil {
		return f.execute(query, params, graph)
	}
	return &domain.GraphQueryResult{
		Headers:  []string{"name", "age"},
		Data:     [][]any{{"alice", int64(30)}},
		Metadata: []string{"Cached execution: 0"},
	}, nil
}

func (f *fakeStore) ListGraphs(context.Context) ([]domain.GraphDescriptor, error) {
	return f.graphs, nil
}

func (f *fakeStore) Resources(ctx context.Context, graph string) (*domain.GraphResources, error) {
	graphs, _ := f.ListGraphs(ctx)
	return &domain.GraphResources{Graphs: graphs, Nodes: 10, Relationships: 4}, nil
}

func (f *fakeStore) Metadata(context.Context) domain.ProviderMetadata {
	return domain.ProviderMetadata{Provider: "FalkorDB", Version: "unknown", RedisMode: "unknown"}
}

func (f *fakeStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeStore) setPingErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type testEnv struct {
	server   *httptest.Server
	hub      *events.Hub
	store    *fakeStore
	shutdown context.CancelFunc
}

func newTestEnv(t *testing.T, store *fakeStore, hubOpts events.Options) *testEnv {
	t.Helper()
	if store == nil {
		store = &fakeStore{graphs: []domain.GraphDescriptor{domain.NewGraphDescriptor("social"), domain.NewGraphDescriptor("movies")}}
	}

	hub := events.NewHub(hubOpts)
	queries := services.NewContextService(store, hub, "default")
	shutdownCtx, cancel := context.WithCancel(context.Background())

	srv := NewServer(Options{CORSOrigin: "*"})
	RegisterRoutes(srv.Router(), Deps{
		Queries:     queries,
		MCP:         services.NewMCPService(queries),
		Hub:         hub,
		Auth:        auth.NewGate(testKey, false),
		Info:        ServerInfo{Name: "falkordb-mcp", Version: "test", Environment: "production", Started: time.Now()},
		ShutdownCtx: shutdownCtx,
	})
	server := httptest.NewServer(srv.Router())

	t.Cleanup(func() {
		cancel()
		server.Close()
		hub.Close()
	})
	return &testEnv{server: server, hub: hub, store: store, shutdown: cancel}
}

func (e *testEnv) do(t *testing.T, method, path, key, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp, decoded
}

// openStream connects to the event stream and relays decoded events.
func (e *testEnv) openStream(t *testing.T, key string) (<-chan map[string]any, *http.Response) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.server.URL+APIPrefix+"/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	out := make(chan map[string]any, 32)
	go func() {
		defer close(out)
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			payload, ok := strings.CutPrefix(strings.TrimRight(line, "\n"), "data: ")
			if !ok {
				continue
			}
			var event map[string]any
			if json.Unmarshal([]byte(payload), &event) == nil {
				out <- event
			}
		}
	}()
	return out, resp
}

func next(t *testing.T, stream <-chan map[string]any) map[string]any {
	t.Helper()
	select {
	case event, ok := <-stream:
		require.True(t, ok, "stream closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no stream event within 2s")
		return nil
	}
}

func TestHealthIsExempt(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})

	for _, path := range []string{"/health", APIPrefix + "/health"} {
		resp, body := env.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "ok", body["status"], path)
	}
}

func TestAuthMatrix(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "no header", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + testKey, want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "bootstrap key outside development", header: "Bearer " + auth.BootstrapKey, want: http.StatusUnauthorized},
		{name: "valid key", header: "Bearer " + testKey, want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + testKey, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, env.server.URL+APIPrefix+"/capabilities", nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want == http.StatusUnauthorized {
				var body map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "error", body["status"])
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestStreamRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})
	resp, _ := env.do(t, http.MethodGet, APIPrefix+"/stream", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, env.hub.Count())
}

func TestCapabilitiesAndTools(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})

	_, caps := env.do(t, http.MethodGet, APIPrefix+"/capabilities", testKey, "")
	assert.Equal(t, "success", caps["status"])
	assert.Equal(t, "1.0.0", caps["version"])
	assert.Equal(t, "StreamableHTTP", caps["protocol"])
	assert.Equal(t, map[string]any{
		"context": true, "metadata": true, "tools": true,
		"resources": true, "streaming": true, "graphs": true,
	}, caps["capabilities"])

	_, tools := env.do(t, http.MethodGet, APIPrefix+"/tools", testKey, "")
	assert.Equal(t, "success", tools["status"])
	assert.Len(t, tools["tools"], 4)
}

func TestContextBroadcastsLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})
	stream, resp := env.openStream(t, testKey)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	connected := next(t, stream)
	assert.Equal(t, "connection", connected["type"])
	assert.Equal(t, "connected", connected["status"])

	httpResp, body := env.do(t, http.MethodPost, APIPrefix+"/context", testKey,
		`{"query":"MATCH (p:Person) RETURN p.name, p.age","parameters":{"limit":5},"graphName":"social"}`)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)
	assert.Equal(t, "context", body["type"])
	assert.Equal(t, "success", body["status"])

	processing := next(t, stream)
	assert.Equal(t, "context", processing["type"])
	assert.Equal(t, "processing", processing["status"])
	assert.Equal(t, "social", processing["graphName"])
	assert.Equal(t, "MATCH (p:Person) RETURN p.name, p.age", processing["query"])

	success := next(t, stream)
	assert.Equal(t, "query_result", success["type"])
	assert.Equal(t, "success", success["status"])
	assert.Equal(t, body["data"], success["data"])
}

func TestContextFailureBroadcastsError(t *testing.T) {
	store := &fakeStore{execute: func(string, map[string]any, string) (*domain.GraphQueryResult, error) {
		return nil, apperrors.Backend(errors.New("Invalid input 'X'"))
	}}
	env := newTestEnv(t, store, events.Options{})
	stream, _ := env.openStream(t, testKey)
	next(t, stream)

	resp, body := env.do(t, http.MethodPost, APIPrefix+"/context", testKey, `{"query":"X"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Invalid input 'X'", body["error"])

	assert.Equal(t, "processing", next(t, stream)["status"])
	failed := next(t, stream)
	assert.Equal(t, "query_error", failed["type"])
	assert.Equal(t, "Invalid input 'X'", failed["error"])
	assert.Equal(t, "default", failed["graphName"])
}

func TestContextValidationPublishesNothing(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})
	stream, _ := env.openStream(t, testKey)
	next(t, stream)

	for _, body := range []string{`{}`, `{"query":"   "}`, `not json`} {
		resp, decoded := env.do(t, http.MethodPost, APIPrefix+"/context", testKey, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "error", decoded["status"])
	}
	_, decoded := env.do(t, http.MethodPost, APIPrefix+"/context", testKey, `{}`)
	assert.Contains(t, decoded["error"], "required")
	assert.Empty(t, env.store.executed())

	env.do(t, http.MethodPost, APIPrefix+"/context", testKey, `{"query":"RETURN 1"}`)
	event := next(t, stream)
	assert.Equal(t, "processing", event["status"])
	assert.Equal(t, "RETURN 1", event["query"])
}

func TestQueryDoesNotBroadcast(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})
	stream, _ := env.openStream(t, testKey)
	next(t, stream)

	resp, body := env.do(t, http.MethodPost, APIPrefix+"/query", testKey, `{"query":"RETURN 1","context":{"x":1}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "query", body["type"])

	select {
	case event := <-stream:
		t.Fatalf("unexpected event %v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestResourcesGraphsAreDrawnFromGraphList(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})

	_, graphs := env.do(t, http.MethodGet, APIPrefix+"/graphs", testKey, "")
	assert.Equal(t, "graphs", graphs["type"])

	_, res := env.do(t, http.MethodGet, APIPrefix+"/resources?graphName=social", testKey, "")
	assert.Equal(t, "resources", res["type"])
	data := res["data"].(map[string]any)
	assert.Equal(t, graphs["data"], data["graphs"])
	assert.Equal(t, float64(10), data["nodes"])
	assert.Equal(t, float64(4), data["relationships"])

	for _, g := range data["graphs"].([]any) {
		graph := g.(map[string]any)
		assert.Equal(t, "property", graph["type"])
		assert.Equal(t, true, graph["directed"])
	}
}

func TestMetadata(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})
	_, body := env.do(t, http.MethodGet, APIPrefix+"/metadata", testKey, "")
	assert.Equal(t, "metadata", body["type"])
	assert.Equal(t, "FalkorDB", body["data"].(map[string]any)["provider"])
}

func TestReadiness(t *testing.T) {
	store := &fakeStore{}
	env := newTestEnv(t, store, events.Options{})

	resp, body := env.do(t, http.MethodGet, APIPrefix+"/ready", testKey, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "connected", body["database"])

	store.setPingErr(apperrors.Backend(errors.New("refused")))
	resp, body = env.do(t, http.MethodGet, APIPrefix+"/ready", testKey, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "disconnected", body["database"])
}

func TestStreamHeartbeat(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{HeartbeatInterval: 30 * time.Millisecond})
	stream, _ := env.openStream(t, testKey)
	next(t, stream)

	for i := 0; i < 2; i++ {
		event := next(t, stream)
		assert.Equal(t, "heartbeat", event["type"])
		assert.NotZero(t, event["timestamp"])
		assert.NotContains(t, event, "data")
	}
}

func TestStreamClientDisconnectUnsubscribes(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})
	stream, resp := env.openStream(t, testKey)
	next(t, stream)
	require.Equal(t, 1, env.hub.Count())

	resp.Body.Close()

	assert.Eventually(t, func() bool { return env.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStreamEndsOnShutdown(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})
	stream, _ := env.openStream(t, testKey)
	next(t, stream)

	env.shutdown()

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after shutdown")
	}
	assert.Eventually(t, func() bool { return env.hub.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStreamSubscriberLimit(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{MaxSubscribers: 1, EnforceLimit: true})
	stream, _ := env.openStream(t, testKey)
	next(t, stream)

	resp, body := env.do(t, http.MethodGet, APIPrefix+"/stream", testKey, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "error", body["status"])
}

func TestRootAndDocs(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})

	resp, info := env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "running", info["status"])
	assert.Equal(t, "falkordb-mcp", info["name"])

	resp, docs := env.do(t, http.MethodGet, "/docs", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "3.0.3", docs["openapi"])
	assert.Contains(t, docs["paths"], APIPrefix+"/context")
}

func TestGenerateOpenAPISpecValidates(t *testing.T) {
	spec, err := GenerateOpenAPISpec("http://example.test")
	require.NoError(t, err)
	assert.Contains(t, string(spec), "http://example.test")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, events.Options{})
	env.do(t, http.MethodGet, APIPrefix+"/capabilities", testKey, "")

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "mcp_http_requests_total")
	assert.Contains(t, string(raw), "mcp_stream_subscribers")
}

func TestServer_ForwardingHeadersNeedTrustedProxy(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantClient string
	}{
		{name: "direct clients keep their socket address", trustProxy: false, wantClient: "127.0.0.1"},
		{name: "trusted proxy supplies the client address", trustProxy: true, wantClient: "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Options{TrustProxy: tt.trustProxy})
			srv.Router().Get("/whoami", func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, httpmiddleware.ClientIP(r))
			})
			server := httptest.NewServer(srv.Router())
			defer server.Close()

			req, err := http.NewRequest(http.MethodGet, server.URL+"/whoami", nil)
			require.NoError(t, err)
			req.Header.Set("X-Forwarded-For", "203.0.113.9")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantClient, string(body))
		})
	}
}
