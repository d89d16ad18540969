package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"

	"wushuacademy_go/models"
	"wushuacademy_go/services/registration"
)

// fakeStore is an in-memory registration.Store for exercising handlers
// without a database. createErr, when set, fails every Create call.
type fakeStore struct {
	rows      map[uint]*models.Registration
	nextID    uint
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uint]*models.Registration)}
}

func (f *fakeStore) Create(_ context.Context, reg *models.Registration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	reg.ID = f.nextID
	cp := *reg
	f.rows[reg.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uint) (*models.Registration, error) {
	reg, ok := f.rows[id]
	if !ok {
		return nil, registration.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, _ registration.ListOptions) ([]models.Registration, int64, error) {
	out := make([]models.Registration, 0, len(f.rows))
	for _, reg := range f.rows {
		out = append(out, *reg)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uint, expected, next, invoiceNumber string) (*registration.StatusUpdate, error) {
	reg, ok := f.rows[id]
	if !ok {
		return nil, registration.ErrNotFound
	}
	if reg.PaymentStatus == next {
		cp := *reg
		return &registration.StatusUpdate{Changed: false, Previous: reg.PaymentStatus, Registration: &cp}, nil
	}
	if reg.PaymentStatus != expected {
		return nil, fmt.Errorf("%w: now %s", registration.ErrStaleStatus, reg.PaymentStatus)
	}
	previous := reg.PaymentStatus
	reg.PaymentStatus = next
	if invoiceNumber != "" && reg.InvoiceNumber == "" {
		reg.InvoiceNumber = invoiceNumber
	}
	cp := *reg
	return &registration.StatusUpdate{Changed: true, Previous: previous, Registration: &cp}, nil
}

func (f *fakeStore) Delete(_ context.Context, id uint) (bool, error) {
	if _, ok := f.rows[id]; !ok {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func newTestApp(store registration.Store) *fiber.App {
	rc := NewRegistrationController(registration.NewService(store), nil, nil, nil)
	app := fiber.New()
	app.Post("/api/registrations", rc.Submit)
	app.Get("/api/registrations/:id", rc.GetRegistration)
	app.Patch("/api/registrations/:id/status", rc.UpdateStatus)
	app.Delete("/api/registrations/:id", rc.DeleteRegistration)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, payload
}

func validSubmissionBody() map[string]interface{} {
	return map[string]interface{}{
		"name_en":                "Lim Wei Jie",
		"name_cn":                "林伟杰",
		"ic":                     "120512-14-5566",
		"age":                    13,
		"school":                 "SJKC Chung Hwa",
		"status":                 "Student",
		"phone":                  "012-3456789",
		"email":                  "parent@example.com",
		"level":                  "Intermediate",
		"events":                 []string{"Changquan", "Daoshu"},
		"schedule":               []string{"Saturday 10am", "Sunday 2pm"},
		"class_count":            2,
		"parent_name":            "Lim Ah Kow",
		"parent_ic":              "800101-14-1234",
		"signature_base64":       "data:image/png;base64,iVBORw0KGgoAAAANSUhEUg==",
		"payment_amount":         200,
		"payment_date":           "2026-01-15",
		"payment_receipt_base64": "data:image/jpeg;base64,/9j/4AAQSkZJRg==",
		"signed_pdf_base64":      "data:application/pdf;base64,JVBERi0xLjQ=",
		"form_date":              "2026-01-15",
	}
}

func hasFieldViolation(payload map[string]interface{}, field, reason string) bool {
	list, _ := payload["errors"].([]interface{})
	for _, raw := range list {
		fe, _ := raw.(map[string]interface{})
		if fe["field"] == field && fe["reason"] == reason {
			return true
		}
	}
	return false
}

func TestSubmitAcceptsValidBody(t *testing.T) {
	app := newTestApp(newFakeStore())

	status, payload := doJSON(t, app, http.MethodPost, "/api/registrations", validSubmissionBody())
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%v)", status, http.StatusCreated, payload)
	}
	if payload["success"] != true {
		t.Errorf("success = %v, want true", payload["success"])
	}
	if num, _ := payload["registration_number"].(string); len(num) == 0 {
		t.Errorf("missing registration_number in %v", payload)
	}
}

func TestSubmitReportsNonNumericAgePerField(t *testing.T) {
	app := newTestApp(newFakeStore())

	body := validSubmissionBody()
	body["age"] = "thirteen"
	status, payload := doJSON(t, app, http.MethodPost, "/api/registrations", body)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (%v)", status, http.StatusBadRequest, payload)
	}
	if payload["error_kind"] != "validation" {
		t.Errorf("error_kind = %v, want validation", payload["error_kind"])
	}
	if !hasFieldViolation(payload, "age", registration.ReasonType) {
		t.Errorf("expected age/type violation, got %v", payload["errors"])
	}
}

func TestSubmitAcceptsQuotedNumericAge(t *testing.T) {
	app := newTestApp(newFakeStore())

	body := validSubmissionBody()
	body["age"] = "13"
	body["payment_amount"] = "200.50"
	status, payload := doJSON(t, app, http.MethodPost, "/api/registrations", body)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%v)", status, http.StatusCreated, payload)
	}
}

func TestSubmitReportsAllViolationsTogether(t *testing.T) {
	app := newTestApp(newFakeStore())

	status, payload := doJSON(t, app, http.MethodPost, "/api/registrations", map[string]interface{}{})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", status, http.StatusBadRequest)
	}
	if !hasFieldViolation(payload, "name_en", registration.ReasonRequired) ||
		!hasFieldViolation(payload, "payment_amount", registration.ReasonRequired) {
		t.Errorf("expected required violations, got %v", payload["errors"])
	}
}

func TestSubmitErrorEnvelopes(t *testing.T) {
	tests := []struct {
		name       string
		createErr  error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "number space exhausted",
			createErr:  registration.ErrDuplicateNumber,
			wantStatus: http.StatusServiceUnavailable,
			wantKind:   "duplicate_key",
		},
		{
			name:       "storage failure",
			createErr:  fmt.Errorf("disk full"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "storage",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.createErr = tc.createErr
			app := newTestApp(store)

			status, payload := doJSON(t, app, http.MethodPost, "/api/registrations", validSubmissionBody())
			if status != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", status, tc.wantStatus, payload)
			}
			if payload["error_kind"] != tc.wantKind {
				t.Errorf("error_kind = %v, want %s", payload["error_kind"], tc.wantKind)
			}
			if payload["success"] != false {
				t.Errorf("success = %v, want false", payload["success"])
			}
		})
	}
}

func TestUpdateStatusEnvelopes(t *testing.T) {
	seed := func(store *fakeStore, status string) uint {
		reg := &models.Registration{
			RegistrationNumber: "WSA2026-0001",
			NameEn:             "Lim Wei Jie",
			Email:              "parent@example.com",
			PaymentStatus:      status,
		}
		if err := store.Create(context.Background(), reg); err != nil {
			panic(err)
		}
		return reg.ID
	}

	tests := []struct {
		name       string
		seedStatus string
		path       func(id uint) string
		body       map[string]interface{}
		wantStatus int
		wantKind   string
	}{
		{
			name:       "unknown status value",
			seedStatus: models.PaymentPending,
			path:       func(id uint) string { return fmt.Sprintf("/api/registrations/%d/status", id) },
			body:       map[string]interface{}{"payment_status": "refunded"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
		{
			name:       "missing registration",
			seedStatus: models.PaymentPending,
			path:       func(uint) string { return "/api/registrations/999/status" },
			body:       map[string]interface{}{"payment_status": models.PaymentApproved},
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "decision reversal",
			seedStatus: models.PaymentApproved,
			path:       func(id uint) string { return fmt.Sprintf("/api/registrations/%d/status", id) },
			body:       map[string]interface{}{"payment_status": models.PaymentRejected},
			wantStatus: http.StatusConflict,
			wantKind:   "invalid_transition",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			id := seed(store, tc.seedStatus)
			app := newTestApp(store)

			status, payload := doJSON(t, app, http.MethodPatch, tc.path(id), tc.body)
			if status != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", status, tc.wantStatus, payload)
			}
			if payload["error_kind"] != tc.wantKind {
				t.Errorf("error_kind = %v, want %s", payload["error_kind"], tc.wantKind)
			}
		})
	}
}

func TestUpdateStatusApproveEnvelope(t *testing.T) {
	store := newFakeStore()
	reg := &models.Registration{
		RegistrationNumber: "WSA2026-0001",
		NameEn:             "Lim Wei Jie",
		Email:              "parent@example.com",
		PaymentStatus:      models.PaymentPending,
	}
	if err := store.Create(context.Background(), reg); err != nil {
		t.Fatalf("seed: %v", err)
	}
	app := newTestApp(store)

	path := fmt.Sprintf("/api/registrations/%d/status", reg.ID)
	status, payload := doJSON(t, app, http.MethodPatch, path, map[string]interface{}{
		"payment_status": models.PaymentApproved,
	})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want %d (%v)", status, http.StatusOK, payload)
	}
	if payload["changed"] != true {
		t.Errorf("changed = %v, want true", payload["changed"])
	}
	if payload["previous_status"] != models.PaymentPending || payload["new_status"] != models.PaymentApproved {
		t.Errorf("transition = %v -> %v", payload["previous_status"], payload["new_status"])
	}
	// No mailer is wired in, so the decision commits with email_sent=false.
	if payload["email_sent"] != false {
		t.Errorf("email_sent = %v, want false", payload["email_sent"])
	}
}

func TestDeleteRegistrationEnvelope(t *testing.T) {
	store := newFakeStore()
	reg := &models.Registration{RegistrationNumber: "WSA2026-0001", PaymentStatus: models.PaymentPending}
	if err := store.Create(context.Background(), reg); err != nil {
		t.Fatalf("seed: %v", err)
	}
	app := newTestApp(store)

	path := fmt.Sprintf("/api/registrations/%d", reg.ID)
	status, payload := doJSON(t, app, http.MethodDelete, path, nil)
	if status != http.StatusOK || payload["deleted"] != true {
		t.Fatalf("first delete = %d %v", status, payload)
	}
	status, payload = doJSON(t, app, http.MethodDelete, path, nil)
	if status != http.StatusOK || payload["deleted"] != false {
		t.Fatalf("second delete = %d %v, want deleted=false", status, payload)
	}
}
