package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wushuacademy_go/models"
)

func reg(created time.Time, status, category string, amount int64) models.Registration {
	r := models.Registration{
		Status:        category,
		PaymentStatus: status,
		PaymentAmount: decimal.NewFromInt(amount),
	}
	r.CreatedAt = created
	return r
}

func TestRollup(t *testing.T) {
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

	rows := Rollup([]models.Registration{
		reg(jan, models.PaymentApproved, "Student", 120),
		reg(jan, models.PaymentApproved, "State Team", 320),
		reg(jan, models.PaymentPending, "Student", 200),
		reg(jan, models.PaymentRejected, "Backup Team", 280),
		reg(mar, models.PaymentApproved, "Student", 200),
	})

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	january := rows[0]
	if january.Year != 2026 || january.Month != 1 {
		t.Fatalf("first row = %d-%02d, want 2026-01", january.Year, january.Month)
	}
	if january.TotalRegistrations != 4 {
		t.Errorf("january registrations = %d, want 4", january.TotalRegistrations)
	}
	// Only the two approved payments count toward revenue.
	if january.TotalRevenue.String() != "440" {
		t.Errorf("january revenue = %s, want 440", january.TotalRevenue)
	}
	if january.StudentCount != 2 || january.StateTeamCount != 1 || january.BackupTeamCount != 1 {
		t.Errorf("january categories = %d/%d/%d, want 2/1/1",
			january.StudentCount, january.StateTeamCount, january.BackupTeamCount)
	}

	march := rows[1]
	if march.Month != 3 || march.TotalRegistrations != 1 {
		t.Errorf("second row = month %d with %d registrations, want 3 with 1", march.Month, march.TotalRegistrations)
	}
	if march.TotalRevenue.String() != "200" {
		t.Errorf("march revenue = %s, want 200", march.TotalRevenue)
	}
}

func TestRollupEmpty(t *testing.T) {
	if rows := Rollup(nil); len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}

func TestRollupSortsAcrossYears(t *testing.T) {
	dec25 := time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC)
	jan26 := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	rows := Rollup([]models.Registration{
		reg(jan26, models.PaymentPending, "Student", 120),
		reg(dec25, models.PaymentPending, "Student", 120),
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Year != 2025 || rows[1].Year != 2026 {
		t.Fatalf("rows not ordered by year: %d then %d", rows[0].Year, rows[1].Year)
	}
}
