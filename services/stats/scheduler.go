package stats

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartScheduler recomputes the current year's rows nightly at 02:00 so the
// admin dashboard never reads stale aggregates. Returns the cron runner so
// the caller can stop it on shutdown.
func (s *Service) StartScheduler() *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("0 2 * * *", func() {
		year := time.Now().Year()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.Recompute(ctx, year); err != nil {
			logrus.WithError(err).Error("monthly stats recompute failed")
			return
		}
		logrus.WithField("year", year).Info("monthly stats recomputed")
	})
	if err != nil {
		logrus.WithError(err).Error("failed to schedule monthly stats recompute")
		return c
	}
	c.Start()
	return c
}
