package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/stowage/internal/api"
	"github.com/eugenenazirov/stowage/internal/geometry"
	"github.com/eugenenazirov/stowage/internal/metrics"
	"github.com/eugenenazirov/stowage/internal/planner"
	"github.com/eugenenazirov/stowage/internal/storage"
)

func newRouter(t *testing.T, m *metrics.Metrics) http.Handler {
	t.Helper()

	store := storage.NewMemoryStorage()
	engine := planner.New(planner.WithLogger(zaptest.NewLogger(t)), planner.WithObserver(m))
	handler := api.NewHandler(engine, store)
	logger := zaptest.NewLogger(t)
	return api.NewRouter(handler, logger, api.WithMetrics(m), api.WithRateLimit(0, 0))
}

func performRequest(t *testing.T, handler http.Handler, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func postJSON(t *testing.T, handler http.Handler, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return performRequest(t, handler, http.MethodPost, target, body, map[string]string{"Content-Type": "application/json"})
}

type position struct {
	Start struct{ Width, Depth, Height float64 } `json:"startCoordinates"`
	End   struct{ Width, Depth, Height float64 } `json:"endCoordinates"`
}

func (p position) box() geometry.Box {
	return geometry.Box{
		Start: geometry.Vec3{W: p.Start.Width, D: p.Start.Depth, H: p.Start.Height},
		End:   geometry.Vec3{W: p.End.Width, D: p.End.Depth, H: p.End.Height},
	}
}

func TestIntegrationFlow(t *testing.T) {
	m := metrics.New()
	handler := newRouter(t, m)

	rec := performRequest(t, handler, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	containers := "Container ID,Zone,Width,Depth,Height\ncontA,Crew Quarters,100,100,100\ncontB,Airlock,60,60,60\n"
	rec = performRequest(t, handler, http.MethodPost, "/api/import/containers", []byte(containers), map[string]string{"Content-Type": "text/csv"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from container import, got %d: %s", rec.Code, rec.Body.String())
	}

	items := make([]map[string]any, 0, 4)
	for i, id := range []string{"001", "002", "003", "004"} {
		items = append(items, map[string]any{
			"itemId": id, "name": "Supply " + id,
			"width": 40, "depth": 40, "height": 40,
			"mass": 10, "priority": 90 - i*10, "usageLimit": 1,
		})
	}
	rec = postJSON(t, handler, "/api/placement", map[string]any{"items": items})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from placement, got %d: %s", rec.Code, rec.Body.String())
	}

	var placement struct {
		Placements []struct {
			ItemID      string   `json:"itemId"`
			ContainerID string   `json:"containerId"`
			Position    position `json:"position"`
		} `json:"placements"`
		UnplacedItems []string `json:"unplacedItems"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&placement); err != nil {
		t.Fatalf("decode placement: %v", err)
	}
	if len(placement.Placements)+len(placement.UnplacedItems) != len(items) {
		t.Fatalf("every item must be placed or unplaced, got %+v", placement)
	}
	if len(placement.Placements) < 2 {
		t.Fatalf("expected at least two placements, got %d", len(placement.Placements))
	}
	for i, a := range placement.Placements {
		for _, b := range placement.Placements[i+1:] {
			if a.ContainerID == b.ContainerID && geometry.Overlaps3D(a.Position.box(), b.Position.box()) {
				t.Fatalf("placements %s and %s overlap", a.ItemID, b.ItemID)
			}
		}
	}

	placedID := placement.Placements[0].ItemID
	rec = performRequest(t, handler, http.MethodGet, "/api/search?itemId="+placedID, nil, nil)
	var search struct {
		Found          bool `json:"found"`
		RetrievalSteps []struct {
			Action string `json:"action"`
			ItemID string `json:"itemId"`
		} `json:"retrievalSteps"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&search); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if !search.Found || len(search.RetrievalSteps) == 0 {
		t.Fatalf("expected retrieval steps for %s, got %+v", placedID, search)
	}

	rec = postJSON(t, handler, "/api/retrieve", map[string]any{"itemId": placedID, "userId": "astronaut"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from retrieve, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/waste/identify", nil, nil)
	var waste struct {
		WasteItems []struct {
			ItemID string `json:"itemId"`
			Reason string `json:"reason"`
		} `json:"wasteItems"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&waste); err != nil {
		t.Fatalf("decode waste: %v", err)
	}
	if len(waste.WasteItems) != 1 || waste.WasteItems[0].ItemID != placedID {
		t.Fatalf("expected %s to be waste, got %+v", placedID, waste.WasteItems)
	}

	rec = postJSON(t, handler, "/api/waste/return-plan", map[string]any{
		"undockingContainerId": "contB",
		"undockingDate":        "2030-01-01T00:00:00Z",
		"maxWeight":            50,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from return plan, got %d: %s", rec.Code, rec.Body.String())
	}
	var plan struct {
		Manifest planner.Manifest `json:"returnManifest"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&plan); err != nil {
		t.Fatalf("decode return plan: %v", err)
	}
	if len(plan.Manifest.ReturnItems) != 1 || plan.Manifest.TotalWeight != 10 {
		t.Fatalf("unexpected manifest %+v", plan.Manifest)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/logs?actionType=retrieval", nil, nil)
	var logs struct {
		Logs []struct {
			UserID string `json:"userId"`
		} `json:"logs"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&logs); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if len(logs.Logs) != 1 || logs.Logs[0].UserID != "astronaut" {
		t.Fatalf("expected one retrieval entry, got %+v", logs.Logs)
	}

	rec = performRequest(t, handler, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("stowage_planner_items_placed_total")) {
		t.Fatalf("expected planner metrics to be exposed")
	}
}

func TestIntegrationXLSXImport(t *testing.T) {
	handler := newRouter(t, metrics.New())

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Item ID", "Name", "Width", "Depth", "Height", "Mass", "Priority", "Expiry Date", "Usage Limit", "Preferred Zone"},
		{"7", "Water Bag", 10, 10, 30, 4, 70, "2030-05-01", 12, "Galley"},
		{"8", "Wrench", 5, 5, 20, 1, 30, "N/A", "", "Maintenance"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rec := performRequest(t, handler, http.MethodPost, "/api/import/items", buf.Bytes(),
		map[string]string{"Content-Type": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from xlsx import, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ItemsImported int `json:"itemsImported"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode import: %v", err)
	}
	if resp.ItemsImported != 2 {
		t.Fatalf("expected two items imported, got %d", resp.ItemsImported)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/search?itemId=007", nil, nil)
	var search struct {
		Found bool `json:"found"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&search); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if !search.Found {
		t.Fatalf("expected imported item 007 to be searchable")
	}
}
