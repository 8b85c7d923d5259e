package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/stowage/internal/planner"
	"github.com/eugenenazirov/stowage/internal/simulation"
	"github.com/eugenenazirov/stowage/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func setupTestRouter(t *testing.T) (http.Handler, *controllableClock) {
	t.Helper()

	store := storage.NewMemoryStorage()
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))

	sim := simulation.New(store, clock.Now(), nil)

	handler := NewHandler(planner.New(planner.WithClock(sim.Now)), store, WithClock(clock.Now), WithSimulator(sim))
	logger := zaptest.NewLogger(t)
	router := NewRouter(handler, logger, WithLogging(false), WithRateLimit(0, 0))

	return router, clock
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doRaw(router http.Handler, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

const (
	testContainersCSV = "Container ID,Zone,Width,Depth,Height\n" +
		"contA,Crew Quarters,100,100,100\n" +
		"contB,Airlock,50,50,50\n"
	testItemsCSV = "Item ID,Name,Width,Depth,Height,Mass,Priority,Expiry Date,Usage Limit,Preferred Zone\n" +
		"1,Food Packet,10,10,10,5,80,2024-11-03,3,Crew Quarters\n" +
		"2,Oxygen Cylinder,10,10,10,15,95,N/A,1,Airlock\n" +
		"3,First Aid Kit,10,10,10,2,60,,,Crew Quarters\n"
)

// seedInventory imports the test containers and items and stows items 001
// and 002 one behind the other in contA.
func seedInventory(t *testing.T, router http.Handler) {
	t.Helper()

	if rec := doRaw(router, http.MethodPost, "/api/import/containers", "text/csv", []byte(testContainersCSV)); rec.Code != http.StatusOK {
		t.Fatalf("container import failed: %d %s", rec.Code, rec.Body.String())
	}
	if rec := doRaw(router, http.MethodPost, "/api/import/items", "text/csv", []byte(testItemsCSV)); rec.Code != http.StatusOK {
		t.Fatalf("item import failed: %d %s", rec.Code, rec.Body.String())
	}

	place := func(itemID string, depth float64) {
		rec := doJSON(t, router, http.MethodPost, "/api/place", map[string]any{
			"itemId":      itemID,
			"userId":      "crew-1",
			"containerId": "contA",
			"position": map[string]any{
				"startCoordinates": map[string]float64{"width": 0, "depth": depth, "height": 0},
				"endCoordinates":   map[string]float64{"width": 10, "depth": depth + 10, "height": 10},
			},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("place %s failed: %d %s", itemID, rec.Code, rec.Body.String())
		}
	}
	place("001", 0)
	place("002", 20)
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestWriteDomainErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"geometry", planner.ErrInvalidGeometry, http.StatusBadRequest},
		{"item", planner.ErrInvalidItem, http.StatusBadRequest},
		{"duplicate", planner.ErrDuplicateID, http.StatusBadRequest},
		{"unknown item", planner.ErrUnknownItem, http.StatusNotFound},
		{"stored item", storage.ErrItemNotFound, http.StatusNotFound},
		{"unknown container", planner.ErrUnknownContainer, http.StatusNotFound},
		{"other", assertError("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tc.err)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, clock := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body healthResponse
	decodeBody(t, rec, &body)

	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
	if body.Items != 0 || body.Containers != 0 {
		t.Fatalf("expected empty inventory, got %d items and %d containers", body.Items, body.Containers)
	}
}

func TestPlacementEndpointSuccess(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/placement", map[string]any{
		"items": []map[string]any{
			{"itemId": "001", "name": "Food Packet", "width": 50, "depth": 50, "height": 50, "mass": 5, "priority": 80},
		},
		"containers": []map[string]any{
			{"containerId": "contA", "zone": "Crew Quarters", "width": 100, "depth": 100, "height": 100},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body placementResponse
	decodeBody(t, rec, &body)

	if !body.Success {
		t.Fatalf("expected success")
	}
	if len(body.Placements) != 1 {
		t.Fatalf("expected one placement, got %d", len(body.Placements))
	}
	pl := body.Placements[0]
	if pl.ItemID != "001" || pl.ContainerID != "contA" {
		t.Fatalf("unexpected placement %+v", pl)
	}
	if v := pl.Position.box().Volume(); v != 125000 {
		t.Fatalf("expected a 50x50x50 box, got volume %v", v)
	}
	if len(body.UnplacedItems) != 0 {
		t.Fatalf("expected no unplaced items, got %v", body.UnplacedItems)
	}
	if body.SpaceUtilization["contA"] != 125000 {
		t.Fatalf("expected utilization 125000, got %v", body.SpaceUtilization["contA"])
	}

	search := doJSON(t, router, http.MethodGet, "/api/search?itemId=001", nil)
	var found searchResponse
	decodeBody(t, search, &found)
	if !found.Found || found.Item == nil || found.Item.ContainerID != "contA" {
		t.Fatalf("expected placed item to be stored, got %+v", found)
	}
}

func TestPlacementEndpointReportsUnplaced(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/placement", map[string]any{
		"items": []map[string]any{
			{"itemId": "big", "name": "Crate", "width": 200, "depth": 10, "height": 10, "mass": 5, "priority": 10},
		},
		"containers": []map[string]any{
			{"containerId": "contB", "zone": "Airlock", "width": 50, "depth": 50, "height": 50},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body placementResponse
	decodeBody(t, rec, &body)
	if len(body.Placements) != 0 {
		t.Fatalf("expected no placements, got %+v", body.Placements)
	}
	if len(body.UnplacedItems) != 1 || body.UnplacedItems[0] != "big" {
		t.Fatalf("expected big to be unplaced, got %v", body.UnplacedItems)
	}
}

func TestPlacementEndpointValidatesInput(t *testing.T) {
	router, _ := setupTestRouter(t)

	cases := []struct {
		name    string
		payload any
	}{
		{"no items", map[string]any{"items": []any{}}},
		{"priority out of range", map[string]any{
			"items": []map[string]any{{"itemId": "x", "name": "X", "width": 1, "depth": 1, "height": 1, "priority": 101}},
		}},
		{"zero dimension", map[string]any{
			"items": []map[string]any{{"itemId": "x", "name": "X", "width": 0, "depth": 1, "height": 1, "priority": 1}},
		}},
		{"bad expiry", map[string]any{
			"items": []map[string]any{{"itemId": "x", "name": "X", "width": 1, "depth": 1, "height": 1, "priority": 1, "expiryDate": "soon"}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/placement", tc.payload)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/placement", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected malformed JSON to be rejected, got %d", rec.Code)
	}
}

func TestPlaceRejectsCollision(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/place", map[string]any{
		"itemId":      "003",
		"containerId": "contA",
		"position": map[string]any{
			"startCoordinates": map[string]float64{"width": 5, "depth": 5, "height": 0},
			"endCoordinates":   map[string]float64{"width": 15, "depth": 15, "height": 10},
		},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/place", map[string]any{
		"itemId":      "003",
		"containerId": "missing",
		"position": map[string]any{
			"startCoordinates": map[string]float64{"width": 0, "depth": 0, "height": 0},
			"endCoordinates":   map[string]float64{"width": 10, "depth": 10, "height": 10},
		},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown container, got %d", rec.Code)
	}
}

func TestSearchReturnsRetrievalSteps(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/search?itemId=002", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body searchResponse
	decodeBody(t, rec, &body)

	if !body.Found || body.Item.ItemID != "002" {
		t.Fatalf("expected item 002 to be found, got %+v", body)
	}
	if body.BlockingItems != 1 {
		t.Fatalf("expected one blocking item, got %d", body.BlockingItems)
	}
	want := []struct {
		action planner.Action
		item   string
	}{
		{planner.ActionRemove, "001"},
		{planner.ActionRetrieve, "002"},
		{planner.ActionPlace, "001"},
	}
	if len(body.RetrievalSteps) != len(want) {
		t.Fatalf("expected %d steps, got %+v", len(want), body.RetrievalSteps)
	}
	for i, w := range want {
		step := body.RetrievalSteps[i]
		if step.Step != i+1 || step.Action != w.action || step.ItemID != w.item {
			t.Fatalf("step %d: expected %s %s, got %+v", i+1, w.action, w.item, step)
		}
	}

	byName := doJSON(t, router, http.MethodGet, "/api/search?itemName=oxygen%20cylinder", nil)
	var named searchResponse
	decodeBody(t, byName, &named)
	if !named.Found || named.Item.ItemID != "002" {
		t.Fatalf("expected name lookup to find 002, got %+v", named)
	}
}

func TestSearchMissingItem(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/search?itemId=404", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body searchResponse
	decodeBody(t, rec, &body)
	if body.Found {
		t.Fatalf("expected found=false")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without parameters, got %d", rec.Code)
	}
}

func TestRetrieveExhaustsItemAndFlagsWaste(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/retrieve", map[string]any{"itemId": "002", "userId": "crew-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body retrieveResponse
	decodeBody(t, rec, &body)
	if body.Item.UsesRemaining == nil || *body.Item.UsesRemaining != 0 {
		t.Fatalf("expected no uses remaining, got %v", body.Item.UsesRemaining)
	}
	if !body.Item.IsWaste {
		t.Fatalf("expected item to be flagged as waste")
	}
	if body.Item.ContainerID != "" {
		t.Fatalf("expected retrieved item to leave its container")
	}

	waste := doJSON(t, router, http.MethodGet, "/api/waste/identify", nil)
	var wasteBody wasteResponse
	decodeBody(t, waste, &wasteBody)
	if len(wasteBody.WasteItems) != 1 || wasteBody.WasteItems[0].ItemID != "002" {
		t.Fatalf("expected 002 as the only waste item, got %+v", wasteBody.WasteItems)
	}
	if wasteBody.WasteItems[0].Reason != planner.ReasonOutOfUses {
		t.Fatalf("expected reason %q, got %q", planner.ReasonOutOfUses, wasteBody.WasteItems[0].Reason)
	}

	missing := doJSON(t, router, http.MethodPost, "/api/retrieve", map[string]any{"itemId": "nope"})
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for unknown item, got %d", missing.Code)
	}
}

func TestSimulationExpiresItems(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/simulate/day", map[string]any{
		"numOfDays":           3,
		"itemsToBeUsedPerDay": []map[string]string{{"itemId": "003"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body simulateResponse
	decodeBody(t, rec, &body)

	wantDate := time.Date(2024, 11, 4, 12, 0, 0, 0, time.UTC)
	if !body.NewDate.Equal(wantDate) {
		t.Fatalf("expected new date %s, got %s", wantDate, body.NewDate)
	}
	if len(body.Changes.ItemsExpired) != 1 || body.Changes.ItemsExpired[0] != "001" {
		t.Fatalf("expected 001 to expire, got %v", body.Changes.ItemsExpired)
	}
	if len(body.Days) != 3 {
		t.Fatalf("expected three day reports, got %d", len(body.Days))
	}

	status := doJSON(t, router, http.MethodGet, "/api/simulation/status", nil)
	var st simulationStatusResponse
	decodeBody(t, status, &st)
	if !st.CurrentDate.Equal(wantDate) {
		t.Fatalf("expected simulated date %s, got %s", wantDate, st.CurrentDate)
	}

	bad := doJSON(t, router, http.MethodPost, "/api/simulate/day", map[string]any{})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without a duration, got %d", bad.Code)
	}
}

func TestReturnPlanAndUndocking(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)

	doJSON(t, router, http.MethodPost, "/api/simulate/day", map[string]any{"numOfDays": 3})

	req := map[string]any{
		"undockingContainerId": "contB",
		"undockingDate":        "2024-11-10T00:00:00Z",
		"maxWeight":            100,
	}
	rec := doJSON(t, router, http.MethodPost, "/api/waste/return-plan", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body returnPlanResponse
	decodeBody(t, rec, &body)

	manifest := body.Manifest
	if len(manifest.ReturnItems) != 1 || manifest.ReturnItems[0].ItemID != "001" {
		t.Fatalf("expected 001 in the manifest, got %+v", manifest.ReturnItems)
	}
	if manifest.ReturnItems[0].Reason != planner.ReasonExpired {
		t.Fatalf("expected reason Expired, got %q", manifest.ReturnItems[0].Reason)
	}
	if manifest.TotalWeight != 5 || manifest.TotalVolume != 1000 {
		t.Fatalf("unexpected totals: weight %v volume %v", manifest.TotalWeight, manifest.TotalVolume)
	}
	if len(body.RetrievalSteps) != 1 || body.RetrievalSteps[0].ToContainer != "contB" {
		t.Fatalf("expected a single move into contB, got %+v", body.RetrievalSteps)
	}
	if len(body.ReturnPlan) != 1 || body.ReturnPlan[0].Step != 2 {
		t.Fatalf("expected plan row numbered after its move, got %+v", body.ReturnPlan)
	}

	// Load the waste into the undocking container, then undock.
	move := doJSON(t, router, http.MethodPost, "/api/place", map[string]any{
		"itemId":      "001",
		"containerId": "contB",
		"position": map[string]any{
			"startCoordinates": map[string]float64{"width": 0, "depth": 0, "height": 0},
			"endCoordinates":   map[string]float64{"width": 10, "depth": 10, "height": 10},
		},
	})
	if move.Code != http.StatusOK {
		t.Fatalf("expected place into contB to succeed, got %d: %s", move.Code, move.Body.String())
	}

	undock := doJSON(t, router, http.MethodPost, "/api/waste/complete-undocking", map[string]any{
		"undockingContainerId": "contB",
	})
	if undock.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", undock.Code, undock.Body.String())
	}
	var undockBody completeUndockingResponse
	decodeBody(t, undock, &undockBody)
	if undockBody.ItemsRemoved != 1 {
		t.Fatalf("expected one item removed, got %d", undockBody.ItemsRemoved)
	}

	missing := doJSON(t, router, http.MethodGet, "/api/search?itemId=001", nil)
	var found searchResponse
	decodeBody(t, missing, &found)
	if found.Found {
		t.Fatalf("expected undocked item to be gone")
	}
}

func TestReturnPlanUnknownContainer(t *testing.T) {
	router, _ := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/waste/return-plan", map[string]any{
		"undockingContainerId": "ghost",
		"undockingDate":        "2024-11-10T00:00:00Z",
		"maxWeight":            10,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestImportReportsRowErrors(t *testing.T) {
	router, _ := setupTestRouter(t)

	csv := "Item ID,Name,Width,Depth,Height,Mass,Priority\n" +
		"1,Good,10,10,10,1,50\n" +
		"2,Bad,ten,10,10,1,50\n"
	rec := doRaw(router, http.MethodPost, "/api/import/items", "text/csv", []byte(csv))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body importResponse
	decodeBody(t, rec, &body)
	if body.ItemsImported != 1 {
		t.Fatalf("expected one item imported, got %d", body.ItemsImported)
	}
	if len(body.Errors) != 1 || body.Errors[0].Row != 2 {
		t.Fatalf("expected an error on row 2, got %+v", body.Errors)
	}

	empty := doRaw(router, http.MethodPost, "/api/import/containers", "text/csv", nil)
	if empty.Code != http.StatusBadRequest {
		t.Fatalf("expected empty upload to be rejected, got %d", empty.Code)
	}

	missing := doRaw(router, http.MethodPost, "/api/import/containers", "text/csv", []byte("Container ID,Zone\nc,z\n"))
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected missing columns to be rejected, got %d", missing.Code)
	}
}

func TestExportArrangement(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/export/arrangement", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv, got %s", ct)
	}
	want := "Item ID,Container ID,Coordinates\n" +
		"001,contA,\"(0,0,0),(10,10,10)\"\n" +
		"002,contA,\"(0,20,0),(10,30,10)\"\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected arrangement:\n%s", rec.Body.String())
	}
}

func TestExportManifestFormats(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)

	req := map[string]any{
		"undockingContainerId": "contB",
		"undockingDate":        "2024-11-10T00:00:00Z",
		"maxWeight":            100,
	}

	xlsx := doJSON(t, router, http.MethodPost, "/api/export/manifest", req)
	if xlsx.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", xlsx.Code, xlsx.Body.String())
	}
	if !bytes.HasPrefix(xlsx.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected an XLSX workbook")
	}

	pdf := doJSON(t, router, http.MethodPost, "/api/export/manifest?format=pdf", req)
	if pdf.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", pdf.Code, pdf.Body.String())
	}
	if !bytes.HasPrefix(pdf.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected a PDF document")
	}

	bad := doJSON(t, router, http.MethodPost, "/api/export/manifest?format=doc", req)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected unsupported format to be rejected, got %d", bad.Code)
	}
}

func TestLogsFilterByAction(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)
	doJSON(t, router, http.MethodPost, "/api/retrieve", map[string]any{"itemId": "003", "userId": "crew-2"})

	rec := doJSON(t, router, http.MethodGet, "/api/logs?actionType=place&userId=crew-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body logsResponse
	decodeBody(t, rec, &body)
	if len(body.Logs) != 2 {
		t.Fatalf("expected two place entries, got %+v", body.Logs)
	}
	for _, e := range body.Logs {
		if e.Action != "place" || e.UserID != "crew-1" {
			t.Fatalf("unexpected entry %+v", e)
		}
	}

	retrievals := doJSON(t, router, http.MethodGet, "/api/logs?itemId=003", nil)
	var rb logsResponse
	decodeBody(t, retrievals, &rb)
	if len(rb.Logs) != 1 || rb.Logs[0].Action != "retrieval" {
		t.Fatalf("expected one retrieval entry for 003, got %+v", rb.Logs)
	}

	bad := doJSON(t, router, http.MethodGet, "/api/logs?startDate=yesterday", nil)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected invalid startDate to be rejected, got %d", bad.Code)
	}
}

func TestContainerEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)
	seedInventory(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/containers/contA/items", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body containerResponse
	decodeBody(t, rec, &body)
	if body.ItemCount != 2 || len(body.Items) != 2 {
		t.Fatalf("expected two items in contA, got %+v", body)
	}
	if body.Utilization != 0.002 {
		t.Fatalf("expected utilization 0.002, got %v", body.Utilization)
	}

	list := doJSON(t, router, http.MethodGet, "/api/containers", nil)
	var lb containersResponse
	decodeBody(t, list, &lb)
	if len(lb.Containers) != 2 {
		t.Fatalf("expected two containers, got %d", len(lb.Containers))
	}

	missing := doJSON(t, router, http.MethodGet, "/api/containers/ghost", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", missing.Code)
	}
}

func TestCorsPreflight(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/placement", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "test-request-id")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected X-Request-ID header to be echoed, got %s", got)
	}
}
