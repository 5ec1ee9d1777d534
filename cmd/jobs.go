package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-shop/config"
)

var workerMode bool

type batchJob struct {
	name     string
	interval func(cfg *config.Config) time.Duration
	run      func(ctx context.Context, svc *services) error
}

var reconcileJob = batchJob{
	name:     "reconcile",
	interval: func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
	run: func(ctx context.Context, svc *services) error {
		return svc.payments.RunReconcileBatch(ctx)
	},
}

var expirePendingJob = batchJob{
	name:     "expire_pending",
	interval: func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
	run: func(ctx context.Context, svc *services) error {
		return svc.payments.RunExpirePendingBatch(ctx)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Poll providers for orders still awaiting payment",
	Run: func(_ *cobra.Command, _ []string) {
		runBatchCommand(reconcileJob)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Fail orders whose payment stayed pending past the timeout",
	Run: func(_ *cobra.Command, _ []string) {
		runBatchCommand(expirePendingJob)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(expireCmd)
	expireCmd.AddCommand(expirePendingCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runBatchCommand(job batchJob) {
	cfg, svc, cleanup := mustCreateServices()
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !workerMode {
		runJob(job.name, func() error { return job.run(ctx, svc) })
		return
	}

	interval := job.interval(cfg)
	if interval <= 0 {
		logrus.WithField("job", job.name).Fatal("invalid worker interval")
	}
	runWorker(ctx, job, interval, svc)
}

// runWorker runs the job immediately and then on every tick until ctx is done.
// A batch in flight sees the same ctx, so a signal also stops provider polling.
func runWorker(ctx context.Context, job batchJob, interval time.Duration, svc *services) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{"job": job.name, "interval": interval.String()}).Info("Worker started")
	runJob(job.name, func() error { return job.run(ctx, svc) })

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("job", job.name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(job.name, func() error { return job.run(ctx, svc) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	entry := logrus.WithFields(logrus.Fields{"job": name, "latency": latency.String()})
	if err != nil {
		entry.WithError(err).Error("job_failed")
		return
	}
	entry.Info("job_completed")
}
