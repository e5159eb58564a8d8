package workers

import (
	"chat-inbox/contract"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

const defaultMetricInterval = 30 * time.Second

// Backlog reports how much work a component has queued.
type Backlog interface {
	Pending() int
}

type ProcessStats struct {
	Status     string
	CPUPercent float64
	RAMPercent float32
	RSSBytes   uint64
	Backlog    int
}

// HealthMonitoringWorker logs the resource usage of the current process and
// the feed backlog at a fixed interval.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	backlog        Backlog
	metricInterval time.Duration
}

func NewHealthMonitoringWorker(log *slog.Logger, backlog Backlog, metricInterval time.Duration) *HealthMonitoringWorker {
	if metricInterval <= 0 {
		metricInterval = defaultMetricInterval
	}
	return &HealthMonitoringWorker{log: log, backlog: backlog, metricInterval: metricInterval}
}

func (w *HealthMonitoringWorker) GetName() contract.WorkerName {
	return "health_monitoring"
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			stats, err := w.collect(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Process health",
				"status", stats.Status,
				"cpu", stats.CPUPercent,
				"ram", stats.RAMPercent,
				"rss", stats.RSSBytes,
				"feed_backlog", stats.Backlog)
		}
	}
}

func (w *HealthMonitoringWorker) collect(p *process.Process) (ProcessStats, error) {
	var stats ProcessStats
	status, err := p.Status()
	if err != nil {
		return stats, err
	}
	if stats.CPUPercent, err = p.CPUPercent(); err != nil {
		return stats, err
	}
	if stats.RAMPercent, err = p.MemoryPercent(); err != nil {
		return stats, err
	}
	mem, err := p.MemoryInfo()
	if err != nil {
		return stats, err
	}
	stats.Status = status
	stats.RSSBytes = mem.RSS
	if w.backlog != nil {
		stats.Backlog = w.backlog.Pending()
	}
	return stats, nil
}
