package health

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"

	"mercator-hq/trafficwatch/pkg/traffic"
)

// Monitor is the part of traffic.Monitor the checks read.
type Monitor interface {
	Status() traffic.Status
	CaptureErr() error
	State() *traffic.State
}

// MonitorCheck fails unless the monitor is running.
func MonitorCheck(m Monitor) CheckFunc {
	return func(ctx context.Context) error {
		if s := m.Status(); s != traffic.StatusRunning {
			return fmt.Errorf("monitor is %s", s)
		}
		return nil
	}
}

// CaptureCheck fails once the capture stream has been given up on.
func CaptureCheck(m Monitor) CheckFunc {
	return func(ctx context.Context) error {
		return m.CaptureErr()
	}
}

// LimitsCheck fails while no limits have been published.
func LimitsCheck(m Monitor) CheckFunc {
	return func(ctx context.Context) error {
		if _, ok := m.State().Limits(); !ok {
			return traffic.ErrLimitsUnavailable
		}
		return nil
	}
}

// MemoryCheck fails when host memory usage exceeds maxPercent.
func MemoryCheck(maxPercent float64) CheckFunc {
	return func(ctx context.Context) error {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to read memory stats: %w", err)
		}
		if vm.UsedPercent > maxPercent {
			return fmt.Errorf("memory usage %.1f%% exceeds %.1f%%", vm.UsedPercent, maxPercent)
		}
		return nil
	}
}
