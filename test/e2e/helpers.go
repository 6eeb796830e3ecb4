//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/movewise/internal/api/handlers"
	"github.com/cloo-solutions/movewise/internal/events"
	"github.com/cloo-solutions/movewise/internal/exa"
	"github.com/cloo-solutions/movewise/internal/repository"
	"github.com/cloo-solutions/movewise/internal/retry"
	"github.com/cloo-solutions/movewise/internal/server"
	"github.com/cloo-solutions/movewise/internal/service"
	"github.com/cloo-solutions/movewise/internal/storage"
	"github.com/cloo-solutions/movewise/internal/testutil"
	"github.com/cloo-solutions/movewise/internal/voice"
)

const e2eAPIKey = "mw_e2e_0123456789abcdef"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	ObjectStoreC *testutil.ObjectStoreContainer
	Pool         *pgxpool.Pool
	Exa          *httptest.Server
	ExaCalls     *atomic.Int64
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	APIKey       string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts Postgres, object storage, a fake search provider and the API server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	osC := testutil.NewObjectStoreContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        osC.URL(),
		Region:          "us-east-1",
		AccessKeyID:     osC.AccessKey,
		SecretAccessKey: osC.SecretKey,
		Bucket:          "e2e-reports",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := ensureBucket(ctx, s3Client, 20*time.Second); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	calls := &atomic.Int64{}
	exaSrv := newFakeExa(calls)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, exaSrv.URL, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		ObjectStoreC: osC,
		Pool:         pool,
		Exa:          exaSrv,
		ExaCalls:     calls,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		APIKey:       e2eAPIKey,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Exa != nil {
		e.Exa.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.ObjectStoreC != nil {
		e.ObjectStoreC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the movewise CLI
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "movewise-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "movewise"), "./cmd/movewise")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build movewise: %v\n%s", err, out)
	}
}

// RunMovewise runs the movewise CLI against the test server
func (e *E2ETestEnv) RunMovewise(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "movewise"), args...)
	cmd.Env = append(os.Environ(),
		"MOVEWISE_API_KEY="+e.APIKey,
		"MOVEWISE_API_URL="+e.ServerURL,
		"XDG_CONFIG_HOME="+e.BinaryDir,
		"HOME="+e.BinaryDir,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`
	StatusCode int             `json:"-"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body any, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body any, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// Stream reads a server-sent event stream into a slice of event names and data lines.
func (e *E2ETestEnv) Stream(path, authToken string) ([]string, error) {
	req, err := http.NewRequest(http.MethodGet, e.ServerURL+path, nil)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, b)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, l := range bytes.Split(b, []byte("\n")) {
		if len(l) > 0 {
			lines = append(lines, string(l))
		}
	}
	return lines, nil
}

// DownloadFile downloads a file from a presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// newFakeExa answers every search with two results whose URLs derive from the query.
func newFakeExa(calls *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q := url.QueryEscape(body.Query)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Guide: " + body.Query, "url": "https://example.com/a?q=" + q, "text": "Overview for " + body.Query, "score": 0.9},
				{"title": "Forum: " + body.Query, "url": "https://example.com/b?q=" + q, "text": "Discussion about " + body.Query, "score": 0.7},
			},
		})
	}))
}

// startServer wires the API the way the daemon does, without an LLM.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, exaURL string, port int) (string, func()) {
	jobRepo := repository.NewSearchJobRepository(pool)
	cacheRepo := repository.NewSearchCacheRepository(pool)
	broker := events.NewBroker()

	searchClient := exa.NewClient(exa.Config{
		APIKey:  "exa-e2e",
		BaseURL: exaURL,
		Timeout: 5 * time.Second,
		Retry:   retry.Policy{MaxRetries: 1, InitialInterval: 10 * time.Millisecond},
	})

	jobSvc := service.NewSearchJobService(jobRepo, searchClient, broker)
	watcher := service.NewJobWatcher(jobRepo, broker)
	structured := service.NewStructuredSearchService(searchClient, service.NewAnalyzer(nil))
	narratives := service.NewNarrativeService(nil, structured)
	timelines := service.NewTimelineService(nil)
	reports := service.NewReportService(s3Client, jobRepo)
	tools := voice.NewTools(searchClient, nil, cacheRepo)

	jobHandler := handlers.NewJobHandler(jobSvc, watcher)
	router := server.NewRouter(server.RouterConfig{
		APIKey:            e2eAPIKey,
		JobHandler:        jobHandler,
		SearchHandler:     handlers.NewSearchHandler(structured),
		SimulationHandler: handlers.NewSimulationHandler(narratives, timelines),
		ReportHandler:     handlers.NewReportHandler(reports),
		ToolHandler:       handlers.NewToolHandler(tools),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		jobHandler.Wait()
	}
}

func ensureBucket(ctx context.Context, c *storage.S3Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := c.EnsureBucket(ctx)
		if err == nil || time.Now().After(deadline) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
