package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/sheet/internal/datamgmt"
	"github.com/pbaille/sheet/internal/domain"
	"github.com/pbaille/sheet/internal/fetcher"
	"github.com/pbaille/sheet/internal/migration"
	"github.com/pbaille/sheet/internal/skilltree"
	"github.com/pbaille/sheet/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, Deps) {
	t.Helper()
	adapter := storage.NewAdapter(storage.NewMemoryBackend(0), nil)
	registry := skilltree.NewRegistry(adapter, nil)
	calc, err := skilltree.NewCalculator("")
	require.NoError(t, err)
	engine, err := migration.NewEngine(migration.CurrentVersion, nil, migration.Builtin()...)
	require.NoError(t, err)

	deps := Deps{
		Data:     datamgmt.New(adapter, registry, engine),
		Adapter:  adapter,
		Registry: registry,
		Skills:   skilltree.NewService(adapter, registry, calc),
		Fetcher:  fetcher.New(time.Second),
	}
	srv := httptest.NewServer(New(deps, "").Handler())
	t.Cleanup(srv.Close)
	return srv, deps
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthAndCORS(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = do(t, http.MethodOptions, srv.URL+"/storage/notes", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStorageEndpoints(t *testing.T) {
	srv, deps := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/storage/characterInfo", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/storage/characterInfo", `{"basicInfo":{"name":"Ayla"}}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/storage/characterInfo", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/storage/characterInfo", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info map[string]any
	decode(t, resp, &info)
	assert.Equal(t, "Ayla", info["basicInfo"].(map[string]any)["name"])

	resp = do(t, http.MethodPut, srv.URL+"/storage/skillTree-wissen", `{"id":"wissen","title":"Wissen","skills":[]}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"wissen"}, deps.Registry.IDs(testContext(t)))

	resp = do(t, http.MethodPut, srv.URL+"/storage/skillTree-index", `[]`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/storage", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Keys []string `json:"keys"`
	}
	decode(t, resp, &listing)
	assert.Equal(t, []string{"characterInfo", "skillTree-index", "skillTree-wissen"}, listing.Keys)

	resp = do(t, http.MethodDelete, srv.URL+"/storage/skillTree-wissen", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, deps.Registry.IDs(testContext(t)))

	resp = do(t, http.MethodDelete, srv.URL+"/storage/characterInfo", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, ok := deps.Adapter.GetRaw(testContext(t), domain.KeyCharacterInfo)
	assert.False(t, ok)
}

func TestExportImportDelete(t *testing.T) {
	srv, deps := newTestServer(t)
	ctx := testContext(t)
	_, err := deps.Skills.AddSkill(ctx, "handeln", "Klettern", 40)
	require.NoError(t, err)

	resp := do(t, http.MethodGet, srv.URL+"/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Regexp(t, `^attachment; filename="character-data-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.\d{3}Z\.json"$`, resp.Header.Get("Content-Disposition"))
	var snap domain.Snapshot
	decode(t, resp, &snap)
	assert.Contains(t, snap.Data.Widgets.SkillTrees, "handeln")

	resp = do(t, http.MethodDelete, srv.URL+"/data?restoreDefaults=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, ok := deps.Registry.Load(ctx, "handeln")
	assert.False(t, ok)

	raw, err := datamgmt.EncodeSnapshot(&snap)
	require.NoError(t, err)
	resp = do(t, http.MethodPost, srv.URL+"/import", string(raw))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var imported ImportResponse
	decode(t, resp, &imported)
	assert.False(t, imported.Partial)
	assert.Contains(t, imported.Report.Written, "skillTree-handeln")

	tree, ok := deps.Registry.Load(ctx, "handeln")
	require.True(t, ok)
	assert.Equal(t, 44, tree.Skills[0].FinalValue)
}

func TestImportRejectsInvalidSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/import", `{"metadata":{"version":"1.2.0"},"data":{}}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Contains(t, body["error"], "import failed: invalid file")
	assert.NotNil(t, body["validation"])
}

func TestImportFromURL(t *testing.T) {
	srv, deps := newTestServer(t)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"metadata": {"version": "1.2.0", "exportDate": "2024-01-01T00:00:00.000Z", "exportId": "x", "applicationVersion": "1.2.0", "checksum": "0"},
			"data": {"widgets": {"characterStatus": {"statusEffects": ["blessed"], "conditions": []}}, "settings": {}, "layout": {"widgets": []}}
		}`))
	}))
	defer remote.Close()

	resp := do(t, http.MethodPost, srv.URL+"/import?url="+remote.URL, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	status, ok := deps.Adapter.GetRaw(testContext(t), domain.KeyCharacterStatus)
	require.True(t, ok)
	assert.JSONEq(t, `{"statusEffects":["blessed"],"conditions":[]}`, status)
}

func TestSkillTreeEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/skill-trees/soziales/skills", `{"name":"Reden","value":25}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tree domain.SkillTree
	decode(t, resp, &tree)
	require.Len(t, tree.Skills, 1)
	assert.Equal(t, "Soziales", tree.Title)
	assert.Equal(t, 27, tree.Skills[0].FinalValue)

	resp = do(t, http.MethodPatch, srv.URL+"/skill-trees/soziales/skills/"+tree.Skills[0].ID, `{"value":50}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &tree)
	assert.Equal(t, 55, tree.Skills[0].FinalValue)

	resp = do(t, http.MethodPut, srv.URL+"/skill-trees/soziales/bonus", `{"manualBonus":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &tree)
	assert.Equal(t, 58, tree.Skills[0].FinalValue)

	resp = do(t, http.MethodPatch, srv.URL+"/skill-trees/soziales/skills/nope", `{"value":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/skill-trees/index", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/skill-trees", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all struct {
		SkillTrees map[string]domain.SkillTree `json:"skillTrees"`
	}
	decode(t, resp, &all)
	assert.Contains(t, all.SkillTrees, "soziales")
}

func TestMetricsAndVersions(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sb strings.Builder
	_, err := io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "sheet_data_operations_total")

	resp = do(t, http.MethodGet, srv.URL+"/versions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v struct {
		Current  string   `json:"current"`
		Versions []string `json:"versions"`
	}
	decode(t, resp, &v)
	assert.Equal(t, migration.CurrentVersion, v.Current)
	assert.Equal(t, []string{"1.0.0", "1.1.0", "1.2.0"}, v.Versions)
}

func TestRemoteImportDisabledWithoutFetcher(t *testing.T) {
	_, deps := newTestServer(t)
	deps.Fetcher = nil
	srv := httptest.NewServer(New(deps, "").Handler())
	defer srv.Close()

	var contacted atomic.Bool
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contacted.Store(true)
	}))
	defer remote.Close()

	resp := do(t, http.MethodPost, srv.URL+"/import?url="+remote.URL, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, contacted.Load())
}

// testContext stands in for testing.T.Context (Go 1.24+): a context that is
// canceled just before the test's Cleanup-registered functions run.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
