package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/benvon/carbon-tracker/internal/database/databasetest"
	"github.com/benvon/carbon-tracker/internal/services/activity"
	"github.com/benvon/carbon-tracker/internal/services/emissions"
	"github.com/benvon/carbon-tracker/internal/services/reports"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type testActivity struct {
	ID            string   `json:"id"`
	UserID        string   `json:"userId"`
	ActivityType  string   `json:"activityType"`
	TransportMode *string  `json:"transportMode"`
	Distance      *float64 `json:"distance"`
	CO2e          float64  `json:"co2e"`
	Date          string   `json:"date"`
	Notes         string   `json:"notes"`
}

// newTestRouter wires the API routes against an in-memory store and an unreachable remote estimator
func newTestRouter(t *testing.T) (*mux.Router, *databasetest.ActivityStore) {
	t.Helper()

	failing := emissions.RemoteFunc(func(context.Context, emissions.RemoteRequest) (float64, error) {
		return 0, errors.New("remote unavailable")
	})
	est := emissions.NewEstimator(failing, nil, zap.NewNop())
	store := databasetest.NewActivityStore()
	activities := activity.NewService(store, est, "", zap.NewNop())

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	NewActivityHandler(activities, zap.NewNop()).RegisterRoutes(api.PathPrefix("/activities").Subrouter())
	NewReportHandler(reports.NewService(store), zap.NewNop()).RegisterRoutes(api.PathPrefix("/reports").Subrouter())
	api.HandleFunc("/calculate", NewCalculateHandler(activities, zap.NewNop()).Calculate).Methods("POST")
	api.HandleFunc("/factors", NewFactorsHandler(est.Factors()).ListFactors).Methods("GET")
	return r, store
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return env
}

func createActivity(t *testing.T, r http.Handler, body string) testActivity {
	t.Helper()
	rr := do(t, r, http.MethodPost, "/api/v1/activities", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rr.Code, rr.Body.String())
	}
	var a testActivity
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &a); err != nil {
		t.Fatalf("failed to decode activity: %v", err)
	}
	return a
}

func TestCreateActivity_TrainFallsBackWhenRemoteFails(t *testing.T) {
	t.Parallel()
	r, store := newTestRouter(t)

	a := createActivity(t, r, `{"activityType":"commute","distance":50,"transportMode":"train","date":"2024-03-01"}`)

	if a.CO2e != 2.05 {
		t.Errorf("co2e = %v, want 2.05", a.CO2e)
	}
	if a.UserID != activity.DefaultUserID {
		t.Errorf("userId = %q, want %q", a.UserID, activity.DefaultUserID)
	}
	if !strings.HasPrefix(a.Date, "2024-03-01") {
		t.Errorf("date = %q", a.Date)
	}
	if store.Len() != 1 {
		t.Errorf("store holds %d activities, want 1", store.Len())
	}
}

func TestCreateActivity_NumericStrings(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	a := createActivity(t, r, `{"activityType":"food","foodType":"beef","quantity":"2","unit":"kg"}`)
	if a.CO2e != 54 {
		t.Errorf("co2e = %v, want 54", a.CO2e)
	}
}

func TestCreateActivity_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"activityType":`, http.StatusBadRequest},
		{"missing type", `{"distance":10}`, http.StatusBadRequest},
		{"unknown type", `{"activityType":"shopping"}`, http.StatusBadRequest},
		{"missing distance", `{"activityType":"commute","transportMode":"car"}`, http.StatusBadRequest},
		{"negative quantity", `{"activityType":"food","foodType":"beef","quantity":-1}`, http.StatusBadRequest},
		{"negative distance on food", `{"activityType":"food","foodType":"beef","quantity":1,"distance":-5}`, http.StatusBadRequest},
		{"negative quantity on electricity", `{"activityType":"electricity","energyConsumed":3,"quantity":"-1"}`, http.StatusBadRequest},
		{"bad date", `{"activityType":"commute","distance":1,"date":"yesterday"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, store := newTestRouter(t)
			rr := do(t, r, http.MethodPost, "/api/v1/activities", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			env := decodeEnvelope(t, rr)
			if env.Success || env.Message == "" {
				t.Errorf("unexpected error envelope %+v", env)
			}
			if store.Len() != 0 {
				t.Errorf("rejected request stored %d activities", store.Len())
			}
		})
	}
}

func TestActivityLifecycle(t *testing.T) {
	t.Parallel()
	r, store := newTestRouter(t)

	a := createActivity(t, r, `{"activityType":"commute","distance":100,"transportMode":"car","notes":"office"}`)
	if a.CO2e != 21 {
		t.Fatalf("co2e = %v, want 21", a.CO2e)
	}

	rr := do(t, r, http.MethodGet, "/api/v1/activities/"+a.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get returned %d", rr.Code)
	}

	rr = do(t, r, http.MethodPatch, "/api/v1/activities/"+a.ID, `{"transportMode":"train"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rr.Code, rr.Body.String())
	}
	var updated testActivity
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.CO2e != 4.1 {
		t.Errorf("updated co2e = %v, want 4.1", updated.CO2e)
	}
	if updated.Notes != "office" {
		t.Errorf("notes = %q, want unchanged", updated.Notes)
	}

	rr = do(t, r, http.MethodPut, "/api/v1/activities/"+a.ID, `{"notes":"home"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("notes update returned %d", rr.Code)
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.CO2e != 4.1 || updated.Notes != "home" {
		t.Errorf("notes-only update gave %+v", updated)
	}

	rr = do(t, r, http.MethodDelete, "/api/v1/activities/"+a.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d", rr.Code)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d activities after delete", store.Len())
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rr = do(t, r, method, "/api/v1/activities/"+a.ID, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s after delete returned %d, want 404", method, rr.Code)
		}
	}
	rr = do(t, r, http.MethodPatch, "/api/v1/activities/"+a.ID, `{"notes":"x"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("update after delete returned %d, want 404", rr.Code)
	}
}

func TestUpdateActivity_RejectsNegativeUnusedQuantity(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	a := createActivity(t, r, `{"activityType":"commute","distance":100,"transportMode":"car"}`)

	for _, body := range []string{`{"energyConsumed":-99}`, `{"quantity":-1,"notes":"x"}`} {
		rr := do(t, r, http.MethodPatch, "/api/v1/activities/"+a.ID, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("PATCH %s returned %d, want 400: %s", body, rr.Code, rr.Body.String())
		}
	}

	rr := do(t, r, http.MethodGet, "/api/v1/activities/"+a.ID, "")
	var got struct {
		testActivity
		Quantity       *float64 `json:"quantity"`
		EnergyConsumed *float64 `json:"energyConsumed"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Quantity != nil || got.EnergyConsumed != nil || got.Notes != "" || got.CO2e != 21 {
		t.Errorf("rejected updates changed the activity: %+v", got)
	}
}

func TestActivity_InvalidID(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	rr := do(t, r, http.MethodGet, "/api/v1/activities/not-a-uuid", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestListActivities(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	for day := 1; day <= 5; day++ {
		createActivity(t, r, fmt.Sprintf(`{"userId":"alice","activityType":"commute","distance":10,"transportMode":"bus","date":"2024-01-0%d"}`, day))
	}
	createActivity(t, r, `{"userId":"bob","activityType":"electricity","energyConsumed":10,"date":"2024-01-03"}`)

	tests := []struct {
		name       string
		query      string
		status     int
		total      int
		count      int
		totalPages int
		firstDate  string
	}{
		{"all users", "", http.StatusOK, 6, 6, 1, "2024-01-05"},
		{"by user", "?userId=alice", http.StatusOK, 5, 5, 1, "2024-01-05"},
		{"by type", "?activityType=electricity", http.StatusOK, 1, 1, 1, "2024-01-03"},
		{"date range inclusive", "?userId=alice&startDate=2024-01-02&endDate=2024-01-04", http.StatusOK, 3, 3, 1, "2024-01-04"},
		{"paged", "?userId=alice&page=2&pageSize=2", http.StatusOK, 5, 2, 3, "2024-01-03"},
		{"invalid paging ignored", "?page=abc&pageSize=-1", http.StatusOK, 6, 6, 1, "2024-01-05"},
		{"bad type", "?activityType=shopping", http.StatusBadRequest, 0, 0, 0, ""},
		{"bad start date", "?startDate=soon", http.StatusBadRequest, 0, 0, 0, ""},
		{"inverted range", "?startDate=2024-02-01&endDate=2024-01-01", http.StatusBadRequest, 0, 0, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rr := do(t, r, http.MethodGet, "/api/v1/activities"+tt.query, "")
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var page struct {
				Activities []testActivity `json:"activities"`
				Total      int            `json:"total"`
				TotalPages int            `json:"totalPages"`
			}
			if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &page); err != nil {
				t.Fatal(err)
			}
			if page.Total != tt.total || len(page.Activities) != tt.count || page.TotalPages != tt.totalPages {
				t.Fatalf("got total=%d count=%d pages=%d, want %d/%d/%d",
					page.Total, len(page.Activities), page.TotalPages, tt.total, tt.count, tt.totalPages)
			}
			if !strings.HasPrefix(page.Activities[0].Date, tt.firstDate) {
				t.Errorf("first date = %q, want %s", page.Activities[0].Date, tt.firstDate)
			}
		})
	}
}

func TestListActivities_PageBeyondRange(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)
	createActivity(t, r, `{"activityType":"electricity","energyConsumed":10}`)

	for _, page := range []string{"2", "9223372036854775807"} {
		rr := do(t, r, http.MethodGet, "/api/v1/activities?pageSize=50&page="+page, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("page %s: status = %d, want 200: %s", page, rr.Code, rr.Body.String())
		}
		var got struct {
			Activities []testActivity `json:"activities"`
			Total      int            `json:"total"`
		}
		if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &got); err != nil {
			t.Fatal(err)
		}
		if got.Total != 1 || len(got.Activities) != 0 {
			t.Errorf("page %s: total=%d count=%d, want 1/0", page, got.Total, len(got.Activities))
		}
	}
}

func TestListActivities_StoreFailure(t *testing.T) {
	t.Parallel()
	r, store := newTestRouter(t)
	store.FailWith = errors.New("connection refused")

	rr := do(t, r, http.MethodGet, "/api/v1/activities", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "connection refused") {
		t.Error("internal error details leaked to client")
	}
}

func TestCalculate(t *testing.T) {
	t.Parallel()
	r, store := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
		co2e   float64
	}{
		{"electricity fallback", `{"activityType":"electricity","energyConsumed":10,"energyUnit":"kWh"}`, http.StatusOK, 4.75},
		{"food pounds", `{"activityType":"food","foodType":"chicken","quantity":1,"unit":"lb"}`, http.StatusOK, 3.129785},
		{"walking is free", `{"activityType":"commute","distance":5,"transportMode":"walking"}`, http.StatusOK, 0},
		{"missing energy", `{"activityType":"electricity"}`, http.StatusBadRequest, 0},
		{"unknown type", `{"activityType":"shopping"}`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, r, http.MethodPost, "/api/v1/calculate", tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var resp CalculateResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if !resp.Success || resp.CO2e != tt.co2e || resp.Unit != "kg" {
				t.Errorf("got %+v, want co2e %v kg", resp, tt.co2e)
			}
		})
	}

	if store.Len() != 0 {
		t.Errorf("calculate stored %d activities", store.Len())
	}
}

func TestReports(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	createActivity(t, r, `{"activityType":"commute","distance":50,"transportMode":"train","date":"2024-01-01"}`)
	createActivity(t, r, `{"activityType":"commute","distance":100,"transportMode":"car","date":"2024-01-01"}`)
	createActivity(t, r, `{"activityType":"electricity","energyConsumed":10,"date":"2024-01-09"}`)

	rr := do(t, r, http.MethodGet, "/api/v1/reports/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary returned %d", rr.Code)
	}
	var summary struct {
		TotalCO2e     float64 `json:"totalCo2e"`
		ActivityCount int     `json:"activityCount"`
		Unit          string  `json:"unit"`
		ByType        []struct {
			ActivityType string  `json:"activityType"`
			TotalCO2e    float64 `json:"totalCo2e"`
		} `json:"byType"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalCO2e != 27.8 || summary.ActivityCount != 3 || summary.Unit != "kg" || len(summary.ByType) != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}

	rr = do(t, r, http.MethodGet, "/api/v1/reports/timeline?period=week", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("timeline returned %d", rr.Code)
	}
	var timeline struct {
		Period  string `json:"period"`
		Buckets []struct {
			Date      string  `json:"date"`
			TotalCO2e float64 `json:"totalCo2e"`
		} `json:"buckets"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &timeline); err != nil {
		t.Fatal(err)
	}
	if timeline.Period != "week" || len(timeline.Buckets) != 2 {
		t.Fatalf("unexpected timeline %+v", timeline)
	}
	if timeline.Buckets[0].Date != "2023-12-31" || timeline.Buckets[0].TotalCO2e != 23.05 {
		t.Errorf("first bucket = %+v", timeline.Buckets[0])
	}

	rr = do(t, r, http.MethodGet, "/api/v1/reports/timeline?period=month", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unsupported period returned %d, want 400", rr.Code)
	}
}

func TestListFactors(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t)

	rr := do(t, r, http.MethodGet, "/api/v1/factors", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Contract        string             `json:"contract"`
		Commute         map[string]string  `json:"commute"`
		FallbackKgPerKm map[string]float64 `json:"fallbackKgPerKm"`
		GridKgPerKWh    float64            `json:"gridKgPerKWh"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, rr).Data, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Contract != "data_v1" || resp.Commute["train"] == "" || resp.FallbackKgPerKm["train"] != 0.041 || resp.GridKgPerKWh != 0.475 {
		t.Errorf("unexpected factors %+v", resp)
	}
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"notes":"`+strings.Repeat("a", 64)+`"}`))
	rr := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rr, req.Body, 8)

	var dst map[string]any
	if decodeJSON(rr, req, &dst) {
		t.Fatal("decodeJSON succeeded on oversized body")
	}
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestRespondJSONError_TruncatesMessage(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	respondJSONError(rr, http.StatusBadRequest, "Bad Request", strings.Repeat("x", 500))

	env := decodeEnvelope(t, rr)
	if len(env.Message) > maxErrorMessageLength+3 {
		t.Errorf("message length = %d, want at most %d", len(env.Message), maxErrorMessageLength+3)
	}
	if env.Error != "Bad Request" || env.Success {
		t.Errorf("unexpected envelope %+v", env)
	}
}
