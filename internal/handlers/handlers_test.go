package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/citasalud/citas-server/internal/notifier"
	"github.com/citasalud/citas-server/internal/routes"
	"github.com/citasalud/citas-server/internal/store"
	"github.com/citasalud/citas-server/internal/utils"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	routes.SetupRoutes(router, store.NewMemoryStore(), notifier.New("", zerolog.Nop()))
	return router
}

// do performs a request and decodes the envelope.
func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, utils.Response) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp utils.Response
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response envelope: %v (%s)", err, w.Body.String())
		}
	}
	return w, resp
}

func citaBody(date, timeOfDay string) map[string]string {
	return map[string]string{
		"firstName": "Ana",
		"lastName":  "García",
		"email":     "ana@example.com",
		"phone":     "+34600000000",
		"date":      date,
		"time":      timeOfDay,
		"reason":    "revisión",
	}
}

// createCita creates an appointment through the API and returns its id.
func createCita(t *testing.T, router *gin.Engine, date, timeOfDay string) string {
	t.Helper()
	w, resp := do(t, router, http.MethodPost, "/api/citas", citaBody(date, timeOfDay))
	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	return data["id"].(string)
}

func TestCreate_Returns201WithDefaults(t *testing.T) {
	router := newTestRouter()

	w, resp := do(t, router, http.MethodPost, "/api/citas", citaBody("2025-06-01", "10:00"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !resp.Success {
		t.Error("expected success true")
	}
	data := resp.Data.(map[string]interface{})
	if data["status"] != "confirmed" {
		t.Errorf("expected status confirmed, got %v", data["status"])
	}
	for _, flag := range []string{"reminderLongLeadSent", "reminderShortLeadSent", "reminderPostSent"} {
		if data[flag] != false {
			t.Errorf("expected %s false, got %v", flag, data[flag])
		}
	}
}

func TestCreate_MissingFieldsReturns400(t *testing.T) {
	router := newTestRouter()

	body := citaBody("2025-06-01", "10:00")
	delete(body, "email")
	w, resp := do(t, router, http.MethodPost, "/api/citas", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp.Success {
		t.Error("expected success false")
	}
	if resp.Error == "" {
		t.Error("expected an error message")
	}
}

func TestCreate_BadDateFormatReturns400(t *testing.T) {
	router := newTestRouter()
	w, _ := do(t, router, http.MethodPost, "/api/citas", citaBody("01/06/2025", "10:00"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreate_DoubleBookingScenario(t *testing.T) {
	router := newTestRouter()

	// A books the slot.
	idA := createCita(t, router, "2025-06-01", "10:00")

	// B on the same slot fails with 409.
	w, _ := do(t, router, http.MethodPost, "/api/citas", citaBody("2025-06-01", "10:00"))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for occupied slot, got %d", w.Code)
	}

	// Cancel A, then B succeeds.
	w, _ = do(t, router, http.MethodDelete, "/api/citas/"+idA, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel returned %d", w.Code)
	}
	createCita(t, router, "2025-06-01", "10:00")

	// The date listing shows both the cancelled A and the new booking.
	w, resp := do(t, router, http.MethodGet, "/api/citas/fecha/2025-06-01", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("fecha listing returned %d", w.Code)
	}
	rows := resp.Data.([]interface{})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows on date listing, got %d", len(rows))
	}
	statuses := map[string]int{}
	for _, r := range rows {
		statuses[r.(map[string]interface{})["status"].(string)]++
	}
	if statuses["cancelled"] != 1 || statuses["confirmed"] != 1 {
		t.Errorf("expected one cancelled and one confirmed row, got %v", statuses)
	}
}

func TestUpdate_ConflictOnOccupiedSlot(t *testing.T) {
	router := newTestRouter()
	createCita(t, router, "2025-06-01", "10:00")
	idB := createCita(t, router, "2025-06-01", "11:00")

	w, _ := do(t, router, http.MethodPut, "/api/citas/"+idB, citaBody("2025-06-01", "10:00"))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 when moving onto occupied slot, got %d", w.Code)
	}

	w, resp := do(t, router, http.MethodPut, "/api/citas/"+idB, citaBody("2025-06-02", "09:00"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	if data["date"] != "2025-06-02" {
		t.Errorf("expected updated date, got %v", data["date"])
	}
}

func TestNotFoundEndpoints(t *testing.T) {
	router := newTestRouter()

	cases := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/citas/ffffffff-0000-0000-0000-000000000000", nil},
		{http.MethodPut, "/api/citas/ffffffff-0000-0000-0000-000000000000", citaBody("2025-06-01", "10:00")},
		{http.MethodDelete, "/api/citas/ffffffff-0000-0000-0000-000000000000", nil},
		{http.MethodPatch, "/api/citas/ffffffff-0000-0000-0000-000000000000/reset-flags", nil},
		{http.MethodPatch, "/api/citas/ffffffff-0000-0000-0000-000000000000/marcar-recordatorio", map[string]string{"tipo": "post"}},
	}
	for _, tc := range cases {
		w, resp := do(t, router, tc.method, tc.path, tc.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.path, w.Code)
		}
		if resp.Success {
			t.Errorf("%s %s: expected success false", tc.method, tc.path)
		}
	}
}

func TestMarkReminder_FlagIndependence(t *testing.T) {
	router := newTestRouter()
	id := createCita(t, router, "2025-06-01", "10:00")

	w, resp := do(t, router, http.MethodPatch, "/api/citas/"+id+"/marcar-recordatorio", map[string]string{"tipo": "short-lead"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := resp.Data.(map[string]interface{})
	if data["reminderLongLeadSent"] != false || data["reminderShortLeadSent"] != true || data["reminderPostSent"] != false {
		t.Errorf("expected only short-lead set, got %v", data)
	}

	// Read back confirms persistence.
	_, resp = do(t, router, http.MethodGet, "/api/citas/"+id, nil)
	data = resp.Data.(map[string]interface{})
	if data["reminderShortLeadSent"] != true {
		t.Error("expected short-lead flag persisted")
	}
}

func TestMarkReminder_UnknownTipoReturns400(t *testing.T) {
	router := newTestRouter()
	id := createCita(t, router, "2025-06-01", "10:00")

	w, _ := do(t, router, http.MethodPatch, "/api/citas/"+id+"/marcar-recordatorio", map[string]string{"tipo": "weekly"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown tipo, got %d", w.Code)
	}
}

func TestResetFlags_SingleRecord(t *testing.T) {
	router := newTestRouter()
	id := createCita(t, router, "2025-06-01", "10:00")

	for _, tipo := range []string{"long-lead", "post"} {
		if w, _ := do(t, router, http.MethodPatch, "/api/citas/"+id+"/marcar-recordatorio", map[string]string{"tipo": tipo}); w.Code != http.StatusOK {
			t.Fatalf("marking %s returned %d", tipo, w.Code)
		}
	}

	w, resp := do(t, router, http.MethodPatch, "/api/citas/"+id+"/reset-flags", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := resp.Data.(map[string]interface{})
	for _, flag := range []string{"reminderLongLeadSent", "reminderShortLeadSent", "reminderPostSent"} {
		if data[flag] != false {
			t.Errorf("expected %s false after reset, got %v", flag, data[flag])
		}
	}
}

func TestResetAllFlags_Bulk(t *testing.T) {
	router := newTestRouter()

	// Three citas with one distinct flag set each.
	tipos := []string{"long-lead", "short-lead", "post"}
	for i, tipo := range tipos {
		id := createCita(t, router, "2025-06-01", fmt.Sprintf("%02d:00", 9+i))
		if w, _ := do(t, router, http.MethodPatch, "/api/citas/"+id+"/marcar-recordatorio", map[string]string{"tipo": tipo}); w.Code != http.StatusOK {
			t.Fatalf("marking %s returned %d", tipo, w.Code)
		}
	}

	w, resp := do(t, router, http.MethodPatch, "/api/citas/reset-flags/all", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	rows := resp.Data.([]interface{})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows returned, got %d", len(rows))
	}
	for _, r := range rows {
		data := r.(map[string]interface{})
		for _, flag := range []string{"reminderLongLeadSent", "reminderShortLeadSent", "reminderPostSent"} {
			if data[flag] != false {
				t.Errorf("row %v: expected %s false", data["id"], flag)
			}
		}
	}
}

func TestGetPending_ExcludesPastAndCancelled(t *testing.T) {
	router := newTestRouter()

	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	nextWeek := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	createCita(t, router, yesterday, "10:00")
	keep := createCita(t, router, tomorrow, "10:00")
	dropped := createCita(t, router, nextWeek, "10:00")
	if w, _ := do(t, router, http.MethodDelete, "/api/citas/"+dropped, nil); w.Code != http.StatusOK {
		t.Fatalf("cancel returned %d", w.Code)
	}

	w, resp := do(t, router, http.MethodGet, "/api/citas/pendientes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	rows := resp.Data.([]interface{})
	if len(rows) != 1 {
		t.Fatalf("expected 1 pending cita, got %d", len(rows))
	}
	if rows[0].(map[string]interface{})["id"] != keep {
		t.Error("expected the confirmed future cita to be the pending one")
	}
}

func TestGetByDate_InvalidDateReturns400(t *testing.T) {
	router := newTestRouter()
	w, _ := do(t, router, http.MethodGet, "/api/citas/fecha/not-a-date", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestDeleteAll(t *testing.T) {
	router := newTestRouter()
	createCita(t, router, "2025-06-01", "09:00")
	createCita(t, router, "2025-06-01", "10:00")

	w, resp := do(t, router, http.MethodDelete, "/api/citas", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := resp.Data.(map[string]interface{})
	if data["deleted"] != float64(2) {
		t.Errorf("expected 2 deleted, got %v", data["deleted"])
	}

	_, resp = do(t, router, http.MethodGet, "/api/citas", nil)
	if resp.Data != nil {
		rows := resp.Data.([]interface{})
		if len(rows) != 0 {
			t.Errorf("expected empty listing after purge, got %d rows", len(rows))
		}
	}
}

func TestListOrdering(t *testing.T) {
	router := newTestRouter()
	createCita(t, router, "2025-06-02", "09:00")
	createCita(t, router, "2025-06-01", "11:00")
	createCita(t, router, "2025-06-01", "09:30")

	w, resp := do(t, router, http.MethodGet, "/api/citas", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	rows := resp.Data.([]interface{})
	want := [][2]string{{"2025-06-01", "09:30"}, {"2025-06-01", "11:00"}, {"2025-06-02", "09:00"}}
	for i, wnt := range want {
		data := rows[i].(map[string]interface{})
		if data["date"] != wnt[0] || data["time"] != wnt[1] {
			t.Errorf("position %d: expected %s %s, got %v %v", i, wnt[0], wnt[1], data["date"], data["time"])
		}
	}
}

func TestHealthAndInfo(t *testing.T) {
	router := newTestRouter()

	for _, path := range []string{"/health", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, w.Code)
		}
	}
}
