package client

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_PostSendsAuthAndDecodesData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))
		assert.Equal(t, "movewise-cli", r.Header.Get("X-Client-ID"))
		assert.Equal(t, "/jobs", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"originCity":"Leeds"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"jobId":"job-1","status":"pending"}}`)
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig(testKey, srv.URL+"/")
	resp, err := api.Post("/jobs", map[string]string{"originCity": "Leeds"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"jobId":"job-1","status":"pending"}`, string(resp.Data))
}

func TestAPIClient_NoKeyNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"data":{"status":"ok"}}`)
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("", srv.URL).Get("/health")
	require.NoError(t, err)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"search job not found","code":"NOT_FOUND"}`)
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("", srv.URL).Get("/jobs/nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "search job not found", apiErr.Message)
}

func TestAPIClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAPIClientWithConfig("", srv.URL).Get("/jobs")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "bad gateway")
}

func TestAPIClient_Stream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: chunk\ndata: {\"text\":\"a\"}\n\n")
		fmt.Fprint(w, "event: chunk\ndata: {\"text\":\"b\"}\n\n")
		fmt.Fprint(w, "event: result\ndata: {\"narrative\":\"ab\"}\n\n")
	}))
	defer srv.Close()

	var got []string
	err := NewAPIClientWithConfig("", srv.URL).Stream(http.MethodPost, "/simulations/narrative", map[string]string{}, func(event string, data []byte) error {
		got = append(got, event+" "+string(data))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`chunk {"text":"a"}`,
		`chunk {"text":"b"}`,
		`result {"narrative":"ab"}`,
	}, got)
}

func TestAPIClient_StreamErrorBeforeEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"service not configured","code":"UNAVAILABLE"}`)
	}))
	defer srv.Close()

	err := NewAPIClientWithConfig("", srv.URL).Stream(http.MethodGet, "/jobs/job-1/events", nil, func(string, []byte) error {
		t.Fatal("no events expected")
		return nil
	})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestReadEvents_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	input := "event: job\ndata: 1\n\nevent: job\ndata: 2\n\n"

	calls := 0
	err := readEvents(strings.NewReader(input), func(string, []byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadEvents_MultiLineDataAndDefaultEvent(t *testing.T) {
	input := "data: first\ndata: second\n\n: comment\n\n"

	var events, payloads []string
	err := readEvents(strings.NewReader(input), func(event string, data []byte) error {
		events = append(events, event)
		payloads = append(payloads, string(data))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"message"}, events)
	assert.Equal(t, []string{"first\nsecond"}, payloads)
}
