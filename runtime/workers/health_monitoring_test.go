package workers

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/shirou/gopsutil/process"
	"github.com/stretchr/testify/require"
)

type fixedBacklog int

func (f fixedBacklog) Pending() int { return int(f) }

func TestHealthMonitoringWorker_Collect(t *testing.T) {
	req := require.New(t)
	p, err := process.NewProcess(int32(os.Getpid()))
	req.NoError(err)

	w := NewHealthMonitoringWorker(logs.GetLoggerFromLevel(slog.LevelDebug), fixedBacklog(3), 0)
	stats, err := w.collect(p)

	req.NoError(err)
	req.Equal(3, stats.Backlog)
	req.NotEmpty(stats.Status)
	req.Positive(stats.RSSBytes)
	req.Equal(defaultMetricInterval, w.metricInterval)
}

func TestHealthMonitoringWorker_StopsWithContext(t *testing.T) {
	req := require.New(t)
	w := NewHealthMonitoringWorker(logs.GetLoggerFromLevel(slog.LevelDebug), nil, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req.NoError(w.Run(ctx))
}
