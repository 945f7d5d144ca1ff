package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dshills/keychord/internal/testutil"
	"github.com/dshills/keychord/pkg/config"
	"github.com/dshills/keychord/pkg/engine"
	"github.com/dshills/keychord/pkg/environment"
	kcerrors "github.com/dshills/keychord/pkg/errors"
	"github.com/dshills/keychord/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T, doc string, opts ...engine.Option) *Tree {
	t.Helper()
	data, err := config.ParseYAML([]byte(doc))
	require.NoError(t, err)
	tree, err := engine.Build(data, engine.StringCodec(), environment.Default(), opts...)
	require.NoError(t, err)
	return tree
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEvaluate(t *testing.T) {
	s := New(buildTree(t, testutil.SampleYAML))

	tests := []struct {
		name string
		body string
		want []string
	}{
		{"chord", `{"keys": ["g", "g"]}`, []string{"cursor.top"}},
		{"prefix", `{"keys": ["g"]}`, []string{"cursor.goto"}},
		{"readonly", `{"keys": ["C-s"], "variables": {"readonly": true}}`, []string{"status.readonly"}},
		{"writable", `{"keys": ["C-s"], "variables": {"readonly": false}}`, []string{"file.write", "status.saved"}},
		{"insert mode", `{"mode": "Insert", "keys": ["C-s"], "variables": {"readonly": true}}`, []string{"status.readonly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/evaluate", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.want, decode[EvaluateResponse](t, rec).Actions)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	s := New(buildTree(t, testutil.SampleYAML))

	tests := []struct {
		name   string
		body   string
		status int
		kind   kcerrors.Kind
	}{
		{"malformed", `{"keys": [`, http.StatusBadRequest, ""},
		{"unknown field", `{"keys": ["g"], "extra": 1}`, http.StatusBadRequest, ""},
		{"no keys", `{"keys": []}`, http.StatusBadRequest, ""},
		{"unbound key", `{"keys": ["x"]}`, http.StatusUnprocessableEntity, kcerrors.KindUnknownKeyAtPosition},
		{"unbound mode", `{"mode": "Visual", "keys": ["g"]}`, http.StatusUnprocessableEntity, kcerrors.KindModeNotBound},
		{"missing variable", `{"keys": ["C-s"]}`, http.StatusUnprocessableEntity, kcerrors.KindConditionEvaluationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/evaluate", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, string(tt.kind), resp.Kind)
		})
	}
}

func TestModesAndBindings(t *testing.T) {
	s := New(buildTree(t, testutil.SampleYAML))

	rec := do(t, s, http.MethodGet, "/modes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Insert", "Normal"}, decode[[]string](t, rec))

	rec = do(t, s, http.MethodGet, "/bindings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]BindingResponse](t, rec), 5)

	rec = do(t, s, http.MethodGet, "/bindings?mode=Insert", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []BindingResponse{{Mode: "Insert", Keys: []string{"C-s"}, Command: "smart_save"}},
		decode[[]BindingResponse](t, rec))

	rec = do(t, s, http.MethodGet, "/bindings?mode=Visual", "")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHealthAndRouting(t *testing.T) {
	s := New(buildTree(t, testutil.SampleYAML))

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, s, http.MethodGet, "/evaluate", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/metrics", "").Code)
}

func TestSetTreeSwapsConfiguration(t *testing.T) {
	s := New(buildTree(t, testutil.SampleYAML))

	s.SetTree(buildTree(t, `commands:
  - name: quit
    steps: [app.quit]
key_maps:
  - keys: [q]
    command: quit
`))

	rec := do(t, s, http.MethodPost, "/evaluate", `{"keys": ["q"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"app.quit"}, decode[EvaluateResponse](t, rec).Actions)

	rec = do(t, s, http.MethodPost, "/evaluate", `{"keys": ["g", "g"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	s := New(buildTree(t, testutil.SampleYAML, engine.WithObserver(collector)), WithMetrics(reg))
	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/evaluate", "application/json", strings.NewReader(`{"keys": ["g", "g"]}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `keychord_resolutions_total{command="top",mode="Normal"} 1`)
}
