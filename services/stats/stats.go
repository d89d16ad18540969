// Package stats maintains the monthly_stats reporting rows. They are a
// derived view recomputed from registrations, not part of the lifecycle.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wushuacademy_go/models"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Rollup aggregates registrations into per-month rows. Revenue only counts
// approved payments; category counts cover every registration of the month.
func Rollup(regs []models.Registration) []models.MonthlyStat {
	type key struct {
		year  int
		month int
	}
	byMonth := make(map[key]*models.MonthlyStat)

	for _, reg := range regs {
		k := key{reg.CreatedAt.Year(), int(reg.CreatedAt.Month())}
		row, ok := byMonth[k]
		if !ok {
			row = &models.MonthlyStat{Year: k.year, Month: k.month, TotalRevenue: decimal.Zero}
			byMonth[k] = row
		}

		row.TotalRegistrations++
		if reg.PaymentStatus == models.PaymentApproved {
			row.TotalRevenue = row.TotalRevenue.Add(reg.PaymentAmount)
		}
		switch reg.Status {
		case "State Team":
			row.StateTeamCount++
		case "Backup Team":
			row.BackupTeamCount++
		default:
			row.StudentCount++
		}
	}

	out := make([]models.MonthlyStat, 0, len(byMonth))
	for _, row := range byMonth {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// Recompute rebuilds the monthly rows for one calendar year.
func (s *Service) Recompute(ctx context.Context, year int) error {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(1, 0, 0)

	var regs []models.Registration
	if err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start, end).
		Find(&regs).Error; err != nil {
		return fmt.Errorf("load registrations for %d: %w", year, err)
	}

	rows := Rollup(regs)
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_registrations", "total_revenue",
			"state_team_count", "backup_team_count", "student_count", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upsert monthly stats for %d: %w", year, err)
	}
	return nil
}

// Summary is the admin analytics payload for one year.
type Summary struct {
	Year               int                  `json:"year"`
	Months             []models.MonthlyStat `json:"monthly_stats"`
	YTDRegistrations   int                  `json:"ytd_registrations"`
	YTDRevenue         decimal.Decimal      `json:"ytd_revenue"`
	YTDStateTeam       int                  `json:"ytd_state_team"`
	YTDBackupTeam      int                  `json:"ytd_backup_team"`
	YTDStudents        int                  `json:"ytd_students"`
	RegistrationGrowth float64              `json:"registration_growth"`
	RevenueGrowth      float64              `json:"revenue_growth"`
}

// YearSummary reads the precomputed rows for a year plus growth against the
// previous year.
func (s *Service) YearSummary(ctx context.Context, year int) (*Summary, error) {
	cur, err := s.loadYear(ctx, year)
	if err != nil {
		return nil, err
	}
	prev, err := s.loadYear(ctx, year-1)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Year: year, Months: cur, YTDRevenue: decimal.Zero}
	for _, m := range cur {
		sum.YTDRegistrations += m.TotalRegistrations
		sum.YTDRevenue = sum.YTDRevenue.Add(m.TotalRevenue)
		sum.YTDStateTeam += m.StateTeamCount
		sum.YTDBackupTeam += m.BackupTeamCount
		sum.YTDStudents += m.StudentCount
	}

	prevRegs := 0
	prevRevenue := decimal.Zero
	for _, m := range prev {
		prevRegs += m.TotalRegistrations
		prevRevenue = prevRevenue.Add(m.TotalRevenue)
	}
	if prevRegs > 0 {
		sum.RegistrationGrowth = float64(sum.YTDRegistrations-prevRegs) / float64(prevRegs) * 100
	}
	if prevRevenue.IsPositive() {
		growth, _ := sum.YTDRevenue.Sub(prevRevenue).Div(prevRevenue).Mul(decimal.NewFromInt(100)).Float64()
		sum.RevenueGrowth = growth
	}
	return sum, nil
}

func (s *Service) loadYear(ctx context.Context, year int) ([]models.MonthlyStat, error) {
	var rows []models.MonthlyStat
	if err := s.db.WithContext(ctx).
		Where("year = ?", year).
		Order("month ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load monthly stats for %d: %w", year, err)
	}
	return rows, nil
}
