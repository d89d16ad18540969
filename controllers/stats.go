package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"wushuacademy_go/services/stats"
)

type StatsController struct {
	service *stats.Service
}

func NewStatsController(service *stats.Service) *StatsController {
	return &StatsController{service: service}
}

// GetMonthlyStats returns the precomputed monthly rollup for a year. Passing
// refresh=true recomputes the rollup from registrations first, so the admin
// dashboard does not have to wait for the nightly job.
func (sc *StatsController) GetMonthlyStats(c *fiber.Ctx) error {
	if sc.service == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "Stats require the database backend",
		})
	}

	year := c.QueryInt("year", time.Now().Year())
	if year < 2000 || year > 2100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid year",
		})
	}

	if c.Query("refresh") == "true" {
		if err := sc.service.Recompute(c.Context(), year); err != nil {
			logrus.WithError(err).WithField("year", year).Error("failed to recompute monthly stats")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success":    false,
				"error_kind": "storage",
				"error":      "Failed to recompute stats",
			})
		}
	}

	summary, err := sc.service.YearSummary(c.Context(), year)
	if err != nil {
		logrus.WithError(err).WithField("year", year).Error("failed to load monthly stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "storage",
			"error":      "Failed to fetch stats",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   summary,
	})
}
