package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"wushuacademy_go/database"
)

type HealthController struct{}

// GetHealthStatus reports service liveness plus the state of the database and
// Redis connections. A degraded Redis does not fail the check; a dead
// database does.
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK

	dbStatus := "disabled"
	if db := database.GetDB(); db != nil {
		dbStatus = "ok"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "down"
			status = "unhealthy"
			code = fiber.StatusServiceUnavailable
		}
	}

	redisStatus := "disabled"
	if rc := database.GetRedisClient(); rc != nil {
		redisStatus = "ok"
		if err := rc.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"success":  status == "ok",
		"status":   status,
		"database": dbStatus,
		"redis":    redisStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
