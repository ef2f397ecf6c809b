package app

import (
	"context"
	"time"

	"github.com/mx-space/wsgateway/internal/modules/gateway/gateway"
	pkgcron "github.com/mx-space/wsgateway/internal/pkg/cron"
	"github.com/mx-space/wsgateway/internal/pkg/nativelog"
	"go.uber.org/zap"
)

const logCleanupInterval = 24 * time.Hour

// registerCronJobs registers the gateway's housekeeping jobs.
func registerCronJobs(sched *pkgcron.Scheduler, hub *gateway.Hub, logDir string, retention, statsInterval time.Duration, logger *zap.Logger) error {
	cronLogger := logger.Named("cron")

	jobs := []pkgcron.Job{
		{
			Name:        "gateway_stats",
			Description: "log connection counts",
			Interval:    statsInterval,
			Fn: func(context.Context) error {
				st := hub.Stats()
				cronLogger.Info("gateway stats",
					zap.Int("rooms", st.Rooms),
					zap.Int("connections", st.Connections),
					zap.Int("sessions", st.Sessions),
					zap.Int("addresses", st.Addresses),
				)
				return nil
			},
		},
		{
			Name:        "cleanup_logs",
			Description: "remove expired daily log files",
			Interval:    logCleanupInterval,
			Fn: func(context.Context) error {
				removed, err := nativelog.Prune(logDir, retention, time.Now())
				if err != nil {
					return err
				}
				if len(removed) > 0 {
					cronLogger.Info("removed expired log files", zap.Strings("files", removed))
				}
				return nil
			},
		},
	}
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			return err
		}
	}
	return nil
}
