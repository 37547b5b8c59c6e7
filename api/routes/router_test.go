package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/auditmagic/internal/app"
	"github.com/angelmondragon/auditmagic/internal/grouping"
	"github.com/angelmondragon/auditmagic/internal/items"
	"github.com/angelmondragon/auditmagic/internal/itemtypes"
	"github.com/angelmondragon/auditmagic/internal/ledger"
	"github.com/angelmondragon/auditmagic/internal/search"
	"github.com/angelmondragon/auditmagic/pkg/config"
	"github.com/angelmondragon/auditmagic/pkg/db/dbtest"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"github.com/angelmondragon/auditmagic/pkg/logger"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	client := dbtest.New(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reg := prometheus.NewRegistry()

	cfg := &config.Config{
		App:     config.AppConfig{Env: config.AppEnvDev},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	svcs, err := app.NewServices(cfg, logg, client, reg)
	require.NoError(t, err)

	return NewRouter(cfg, logg, client, reg, svcs.Types, svcs.Items, svcs.Grouping, svcs.Ledger, svcs.Search)
}

func call(t *testing.T, h http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func requireError(t *testing.T, status int, env envelope, wantStatus int, wantCode string) {
	t.Helper()
	require.Equal(t, wantStatus, status)
	require.NotNil(t, env.Error)
	require.Equal(t, wantCode, env.Error.Code)
}

func resolveType(t *testing.T, h http.Handler, name, subType string, serialized bool) models.ItemType {
	t.Helper()
	status, env := call(t, h, http.MethodPost, "/api/v1/types/resolve", map[string]any{
		"name": name, "sub_type": subType, "is_serialized": serialized,
	})
	require.Equal(t, http.StatusOK, status)
	return decode[models.ItemType](t, env)
}

func TestHealthRoutes(t *testing.T) {
	h := newTestRouter(t)

	status, env := call(t, h, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "live", decode[map[string]string](t, env)["status"])

	status, env = call(t, h, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ready", decode[map[string]string](t, env)["status"])
}

func TestSerializedGroupFlow(t *testing.T) {
	h := newTestRouter(t)
	laptop := resolveType(t, h, "Laptop", "X1", true)
	base := fmt.Sprintf("/api/v1/types/%d", laptop.ID)

	for _, serial := range []string{"SN1", "SN2", "SN3"} {
		status, _ := call(t, h, http.MethodPost, base+"/units", map[string]any{"serial_number": serial})
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := call(t, h, http.MethodPost, base+"/units", map[string]any{"serial_number": "SN1"})
	requireError(t, status, env, http.StatusConflict, "DUPLICATE_SERIAL_NUMBER")

	status, env = call(t, h, http.MethodPost, "/api/v1/types/resolve", map[string]any{"name": "Laptop", "sub_type": "X1", "is_serialized": false})
	requireError(t, status, env, http.StatusConflict, "TYPE_CONFLICT")

	status, env = call(t, h, http.MethodGet, base+"/group", nil)
	require.Equal(t, http.StatusOK, status)
	row := decode[grouping.Row](t, env)
	require.Equal(t, 3, row.ItemCount)
	require.Equal(t, []string{"SN1", "SN2", "SN3"}, row.SerialNumbers)

	status, env = call(t, h, http.MethodPost, base+"/units/delete", map[string]any{
		"serial_numbers": []string{"SN1", "SN2", "SN3"}, "notes": "retired",
	})
	requireError(t, status, env, http.StatusUnprocessableEntity, "INVALID_SELECTION")

	status, env = call(t, h, http.MethodPost, base+"/units/delete", map[string]any{
		"serial_numbers": []string{"SN2"}, "notes": "retired",
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, decode[map[string]int](t, env)["deleted"])

	status, env = call(t, h, http.MethodGet, fmt.Sprintf("/api/v1/ledger?type_id=%d", laptop.ID), nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[ledger.Page](t, env)
	require.Len(t, page.Transactions, 4)
	last := page.Transactions[3]
	require.Equal(t, 3, last.QuantityBefore)
	require.Equal(t, 2, last.QuantityAfter)
	require.Equal(t, "SN2", *last.SerialNumber)

	status, env = call(t, h, http.MethodGet, fmt.Sprintf("/api/v1/ledger?type_id=%d&limit=2", laptop.ID), nil)
	require.Equal(t, http.StatusOK, status)
	page = decode[ledger.Page](t, env)
	require.Len(t, page.Transactions, 2)
	require.NotEmpty(t, page.NextCursor)

	status, env = call(t, h, http.MethodGet, fmt.Sprintf("/api/v1/ledger?type_id=%d&limit=2&cursor=%s", laptop.ID, page.NextCursor), nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, decode[ledger.Page](t, env).Transactions, 2)

	status, env = call(t, h, http.MethodPatch, base, map[string]any{"is_serialized": false})
	requireError(t, status, env, http.StatusConflict, "IMMUTABLE_FLAG_VIOLATION")

	status, env = call(t, h, http.MethodGet, "/api/v1/items?serial=SN3", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, laptop.ID, decode[models.Item](t, env).ItemTypeID)
}

func TestBulkFlow(t *testing.T) {
	h := newTestRouter(t)
	cable := resolveType(t, h, "Cable", "HDMI", false)
	base := fmt.Sprintf("/api/v1/types/%d", cable.ID)

	status, env := call(t, h, http.MethodPost, base+"/merge", map[string]any{"quantity": 5, "location": "Bin 4"})
	require.Equal(t, http.StatusCreated, status)
	first := decode[items.MergeResult](t, env)
	require.False(t, first.Merged)

	status, env = call(t, h, http.MethodPost, base+"/merge", map[string]any{"quantity": 3, "location": "Bin 4"})
	require.Equal(t, http.StatusOK, status)
	merged := decode[items.MergeResult](t, env)
	require.True(t, merged.Merged)
	require.Equal(t, 8, merged.Item.Quantity)

	itemPath := fmt.Sprintf("/api/v1/items/%d", merged.Item.ID)

	status, env = call(t, h, http.MethodPost, itemPath+"/remove", map[string]any{"amount": 20})
	requireError(t, status, env, http.StatusUnprocessableEntity, "INSUFFICIENT_QUANTITY")

	status, env = call(t, h, http.MethodPost, itemPath+"/add", map[string]any{"amount": 2, "notes": "restock"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 10, decode[models.Item](t, env).Quantity)

	status, env = call(t, h, http.MethodPatch, itemPath, map[string]any{"quantity": 7})
	requireError(t, status, env, http.StatusBadRequest, "VALIDATION_ERROR")

	status, env = call(t, h, http.MethodPatch, itemPath, map[string]any{"quantity": 7, "reason": "recount"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 7, decode[models.Item](t, env).Quantity)

	status, env = call(t, h, http.MethodPost, base+"/units", map[string]any{"serial_number": "C-1"})
	requireError(t, status, env, http.StatusUnprocessableEntity, "SERIALIZATION_VIOLATION")

	status, _ = call(t, h, http.MethodDelete, itemPath+"?notes=written+off", nil)
	require.Equal(t, http.StatusNoContent, status)

	status, env = call(t, h, http.MethodGet, itemPath, nil)
	requireError(t, status, env, http.StatusNotFound, "NOT_FOUND")

	status, env = call(t, h, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, status)
	result := decode[itemtypes.DeleteResult](t, env)
	require.EqualValues(t, 5, result.TransactionsDeleted)
}

func TestRejectsMalformedRequests(t *testing.T) {
	h := newTestRouter(t)

	status, env := call(t, h, http.MethodGet, "/api/v1/types/abc", nil)
	requireError(t, status, env, http.StatusBadRequest, "VALIDATION_ERROR")

	status, env = call(t, h, http.MethodGet, "/api/v1/types/999", nil)
	requireError(t, status, env, http.StatusNotFound, "NOT_FOUND")

	status, env = call(t, h, http.MethodGet, "/api/v1/ledger?type_id=1&from=2024-03-02&to=2024-03-01", nil)
	requireError(t, status, env, http.StatusBadRequest, "VALIDATION_ERROR")

	status, env = call(t, h, http.MethodGet, "/api/v1/search?q=x&field=color", nil)
	requireError(t, status, env, http.StatusBadRequest, "VALIDATION_ERROR")

	status, env = call(t, h, http.MethodGet, "/api/v1/items", nil)
	requireError(t, status, env, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestShapeViolationsKeepTheirCode(t *testing.T) {
	h := newTestRouter(t)
	cable := resolveType(t, h, "Cable", "HDMI", false)
	laptop := resolveType(t, h, "Laptop", "X1", true)

	for _, path := range []string{"bulk", "merge"} {
		for _, qty := range []int{0, -2} {
			status, env := call(t, h, http.MethodPost, fmt.Sprintf("/api/v1/types/%d/%s", cable.ID, path), map[string]any{"quantity": qty})
			requireError(t, status, env, http.StatusUnprocessableEntity, "SERIALIZATION_VIOLATION")
		}
	}
	status, env := call(t, h, http.MethodPost, fmt.Sprintf("/api/v1/types/%d/bulk", cable.ID), map[string]any{})
	requireError(t, status, env, http.StatusUnprocessableEntity, "SERIALIZATION_VIOLATION")

	for _, serial := range []string{"", "   "} {
		status, env := call(t, h, http.MethodPost, fmt.Sprintf("/api/v1/types/%d/units", laptop.ID), map[string]any{"serial_number": serial})
		requireError(t, status, env, http.StatusUnprocessableEntity, "SERIALIZATION_VIOLATION")
	}
}

func TestSearchRoutes(t *testing.T) {
	h := newTestRouter(t)
	laptop := resolveType(t, h, "Laptop", "X1", true)
	status, _ := call(t, h, http.MethodPost, fmt.Sprintf("/api/v1/types/%d/units", laptop.ID), map[string]any{"serial_number": "SN1"})
	require.Equal(t, http.StatusCreated, status)

	status, env := call(t, h, http.MethodGet, "/api/v1/search?q=lap", nil)
	require.Equal(t, http.StatusOK, status)
	hits := decode[[]search.Hit](t, env)
	require.Len(t, hits, 1)
	require.Equal(t, "Laptop", hits[0].ItemType.Name)

	status, env = call(t, h, http.MethodGet, "/api/v1/search/autocomplete?prefix=la", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []string{"Laptop"}, decode[[]string](t, env))

	status, env = call(t, h, http.MethodGet, "/api/v1/search/history", nil)
	require.Equal(t, http.StatusOK, status)
	history := decode[[]models.SearchHistory](t, env)
	require.Len(t, history, 1)
	require.Equal(t, "lap", history[0].SearchQuery)

	status, env = call(t, h, http.MethodDelete, "/api/v1/search/history", nil)
	require.Equal(t, http.StatusOK, status)
	require.EqualValues(t, 1, decode[map[string]int64](t, env)["removed"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	resolveType(t, h, "Lamp", "", false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "auditmagic_inventory_operations_total"))
}
