package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/wipchat/internal/database"
	"github.com/jask/wipchat/internal/database/repository"
	"github.com/jask/wipchat/internal/llm"
	"github.com/jask/wipchat/internal/wip"
)

func newTestServer(t *testing.T, provider llm.Provider) *httptest.Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tools := DemoTools(repository.NewEventRepo(db))
	srv := httptest.NewServer(New(NewOrchestrator(provider, tools, DefaultManifests())).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestStartSessionReturnsFreshIDs(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	get := func() string {
		resp, err := http.Get(srv.URL + "/wip/start-session")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out wip.SessionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out.SessionID
	}

	a, b := get(), get()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
	require.NotContains(t, a, "-")
}

func TestManifestListsResources(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	resp, err := http.Get(srv.URL + "/wip/manifest")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out wip.ManifestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Contains(t, out.Resources, "wip://calendar")
	require.Contains(t, out.Resources, "wip://stock-level-inspector")
}

func TestChatEndpointRunsTurn(t *testing.T) {
	provider := &scriptedProvider{script: []llm.Result{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "get_stock_for_sku", Arguments: `{"sku":"SKU-TRAIL-01"}`}}},
		{Content: `{"uri":"wip://stock-level-inspector","parameters":[{"name":"sku","value":"SKU-TRAIL-01"}],"text":"here"}`},
	}}
	srv := newTestServer(t, provider)

	body := `{"message":"do you have trail runners in stock?","session_id":"s1"}`
	resp, err := http.Post(srv.URL+"/wip/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []wip.ReplyEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	require.Equal(t, "tool", entries[0].Role)
	require.Equal(t, "get_stock_for_sku", entries[0].Tool)
	require.Contains(t, entries[0].Result, "Trail Runner")
	require.Equal(t, "assistant", entries[1].Role)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	resp, err := http.Post(srv.URL+"/wip/chat", "application/json", strings.NewReader(`{"message":"","session_id":"s1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEndpointProviderFailure(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{err: context.DeadlineExceeded})
	resp, err := http.Post(srv.URL+"/wip/chat", "application/json", strings.NewReader(`{"message":"hi","session_id":"s1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestContextInjectionEndpoint(t *testing.T) {
	provider := &scriptedProvider{script: []llm.Result{
		{Content: `{"uri":"","parameters":[],"text":"noted"}`},
	}}
	srv := newTestServer(t, provider)

	resp, err := http.Post(srv.URL+"/wip/context-injection", "application/json",
		strings.NewReader(`{"content":"{\"selected_size\":\"42\"}","session_id":"s1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the injected context precedes the next turn's user message
	resp, err = http.Post(srv.URL+"/wip/chat", "application/json", strings.NewReader(`{"message":"buy it","session_id":"s1"}`))
	require.NoError(t, err)
	resp.Body.Close()

	history := provider.seen[0]
	var found bool
	for _, m := range history {
		if strings.HasPrefix(m.Content, contextPrefix) {
			found = true
			require.Contains(t, m.Content, "selected_size")
		}
	}
	require.True(t, found)
}

func TestCallToolEndpoint(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})

	resp, err := http.Post(srv.URL+"/wip/call-tool/create_appointment", "application/json",
		strings.NewReader(`{"title":"dentist","date":"2026-08-31","start_time":"13:00"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, "14:00", created["end_time"])

	resp, err = http.Post(srv.URL+"/wip/call-tool/read_daily_calendar", "application/json",
		strings.NewReader(`{"date":"2026-08-31"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var day struct {
		Events []map[string]any `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&day))
	require.Len(t, day.Events, 1)
	require.Equal(t, "dentist", day.Events[0]["title"])
}

func TestCallToolEndpointUnknownTool(t *testing.T) {
	srv := newTestServer(t, &scriptedProvider{})
	resp, err := http.Post(srv.URL+"/wip/call-tool/nope", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
