package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"wushuacademy_go/models"
	"wushuacademy_go/services/registration"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registrations.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s, path
}

func sampleRegistration(num string) *models.Registration {
	return &models.Registration{
		RegistrationNumber: num,
		NameEn:             "Lim Wei Jie",
		IC:                 "120512-14-5566",
		Age:                13,
		School:             "SJKC Chung Hwa",
		Status:             "Student",
		Phone:              "012-3456789",
		Email:              "parent@example.com",
		Events:             "Changquan",
		Schedule:           "Saturday 10am",
		ClassCount:         1,
		ParentName:         "Lim Ah Kow",
		ParentIC:           "800101-14-1234",
		PaymentAmount:      decimal.NewFromInt(120),
		PaymentDate:        "2026-01-15",
		PaymentStatus:      models.PaymentPending,
	}
}

func TestCreateAndGet(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	reg := sampleRegistration("WSA2026-0001")
	if err := s.Create(ctx, reg); err != nil {
		t.Fatalf("create: %v", err)
	}
	if reg.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if reg.CreatedAt.IsZero() || reg.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	got, err := s.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RegistrationNumber != "WSA2026-0001" {
		t.Errorf("number = %q", got.RegistrationNumber)
	}
	if got.PaymentAmount.StringFixed(2) != "120.00" {
		t.Errorf("amount = %s", got.PaymentAmount)
	}
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, sampleRegistration("WSA2026-0001")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Create(ctx, sampleRegistration("WSA2026-0001"))
	if !errors.Is(err, registration.ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s, _ := testStore(t)
	if _, err := s.GetByID(context.Background(), 99); !errors.Is(err, registration.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	s, path := testStore(t)
	ctx := context.Background()

	reg := sampleRegistration("WSA2026-0001")
	if err := s.Create(ctx, reg); err != nil {
		t.Fatalf("create: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.GetByID(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.RegistrationNumber != reg.RegistrationNumber {
		t.Errorf("number = %q, want %q", got.RegistrationNumber, reg.RegistrationNumber)
	}

	// The id sequence must continue, not restart.
	next := sampleRegistration("WSA2026-0002")
	if err := reopened.Create(ctx, next); err != nil {
		t.Fatalf("create after reopen: %v", err)
	}
	if next.ID <= reg.ID {
		t.Errorf("id sequence restarted: %d after %d", next.ID, reg.ID)
	}
}

func TestUpdateStatusLifecycle(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	reg := sampleRegistration("WSA2026-0001")
	if err := s.Create(ctx, reg); err != nil {
		t.Fatalf("create: %v", err)
	}
	createdAt := reg.CreatedAt

	upd, err := s.UpdateStatus(ctx, reg.ID, models.PaymentPending, models.PaymentApproved, "INV-WSA2026-0001")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !upd.Changed || upd.Previous != models.PaymentPending {
		t.Fatalf("update = %+v", upd)
	}
	if upd.Registration.InvoiceNumber != "INV-WSA2026-0001" {
		t.Errorf("invoice = %q", upd.Registration.InvoiceNumber)
	}
	if !upd.Registration.CreatedAt.Equal(createdAt) {
		t.Error("created_at must not change on status update")
	}
	if !upd.Registration.UpdatedAt.After(createdAt) && !upd.Registration.UpdatedAt.Equal(createdAt) {
		t.Error("updated_at must advance on status update")
	}
}

func TestUpdateStatusStaleExpectation(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	reg := sampleRegistration("WSA2026-0001")
	if err := s.Create(ctx, reg); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, reg.ID, models.PaymentPending, models.PaymentRejected, ""); err != nil {
		t.Fatalf("first update: %v", err)
	}

	// Same target as the winner: idempotent no-op.
	upd, err := s.UpdateStatus(ctx, reg.ID, models.PaymentPending, models.PaymentRejected, "")
	if err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if upd.Changed {
		t.Error("re-apply of the winner's status must not report a change")
	}

	// Different target: the loser must not overwrite.
	_, err = s.UpdateStatus(ctx, reg.ID, models.PaymentPending, models.PaymentApproved, "")
	if !errors.Is(err, registration.ErrStaleStatus) {
		t.Fatalf("expected ErrStaleStatus, got %v", err)
	}

	got, _ := s.GetByID(ctx, reg.ID)
	if got.PaymentStatus != models.PaymentRejected {
		t.Errorf("status = %q, the winner's decision must stand", got.PaymentStatus)
	}
}

func TestDelete(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	reg := sampleRegistration("WSA2026-0001")
	if err := s.Create(ctx, reg); err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := s.Delete(ctx, reg.ID)
	if err != nil || !deleted {
		t.Fatalf("delete = (%v, %v)", deleted, err)
	}
	deleted, err = s.Delete(ctx, reg.ID)
	if err != nil || deleted {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}

	// The freed number can be reused after a hard delete.
	if err := s.Create(ctx, sampleRegistration("WSA2026-0001")); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestDeleteKeepsRowWhenFlushFails(t *testing.T) {
	s, path := testStore(t)
	ctx := context.Background()

	reg := sampleRegistration("WSA2026-0001")
	if err := s.Create(ctx, reg); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Replace the data file with a directory so the rename in flush fails.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove data file: %v", err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("block data file: %v", err)
	}

	deleted, err := s.Delete(ctx, reg.ID)
	if err == nil || deleted {
		t.Fatalf("delete = (%v, %v), want flush error", deleted, err)
	}

	// The row must still be readable in memory and deletable once the
	// file becomes writable again.
	if _, err := s.GetByID(ctx, reg.ID); err != nil {
		t.Fatalf("row lost after failed flush: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("unblock data file: %v", err)
	}
	deleted, err = s.Delete(ctx, reg.ID)
	if err != nil || !deleted {
		t.Fatalf("retry delete = (%v, %v)", deleted, err)
	}
}

func TestListFilterAndPagination(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		reg := sampleRegistration(fmt.Sprintf("WSA2026-%04d", i))
		if err := s.Create(ctx, reg); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if i <= 2 {
			if _, err := s.UpdateStatus(ctx, reg.ID, models.PaymentPending, models.PaymentApproved, ""); err != nil {
				t.Fatalf("approve %d: %v", i, err)
			}
		}
	}

	all, total, err := s.List(ctx, registration.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(all) != 5 {
		t.Fatalf("list = %d rows, total %d", len(all), total)
	}
	// Newest first.
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatal("list must be ordered newest first")
		}
	}

	approved, total, err := s.List(ctx, registration.ListOptions{PaymentStatus: models.PaymentApproved})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 2 || len(approved) != 2 {
		t.Fatalf("approved = %d rows, total %d", len(approved), total)
	}

	page, total, err := s.List(ctx, registration.ListOptions{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("paged list: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("page = %d rows, total %d", len(page), total)
	}

	empty, total, err := s.List(ctx, registration.ListOptions{Page: 9, Limit: 2})
	if err != nil {
		t.Fatalf("out-of-range page: %v", err)
	}
	if total != 5 || len(empty) != 0 {
		t.Fatalf("out-of-range page = %d rows, total %d", len(empty), total)
	}
}

func TestConcurrentCreatesKeepNumbersUnique(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Create(ctx, sampleRegistration(fmt.Sprintf("WSA2026-%04d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create: %v", err)
		}
	}

	_, total, err := s.List(ctx, registration.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != n {
		t.Fatalf("total = %d, want %d", total, n)
	}
}

func TestConcurrentStatusUpdatesSingleWinner(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	reg := sampleRegistration("WSA2026-0001")
	if err := s.Create(ctx, reg); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, next := range []string{models.PaymentApproved, models.PaymentRejected} {
		wg.Add(1)
		go func(next string) {
			defer wg.Done()
			_, err := s.UpdateStatus(ctx, reg.ID, models.PaymentPending, next, "")
			results <- err
		}(next)
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, registration.ErrStaleStatus):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d, want exactly one winner", wins, losses)
	}

	got, _ := s.GetByID(ctx, reg.ID)
	if got.PaymentStatus == models.PaymentPending {
		t.Error("one decision must have been applied")
	}
}
