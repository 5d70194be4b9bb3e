package monitor

import (
	"fmt"
	"time"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// Sampler produces resource snapshots. Implementations must be safe for use
// from the single monitor goroutine; they are not called concurrently.
type Sampler interface {
	Sample() (Snapshot, error)
}

// AcceleratorProbe reports accelerator memory usage. Optional: the default
// sampler reports zeros when no probe is configured and the budget falls back
// to reservation-based accounting.
type AcceleratorProbe interface {
	AccelMemoryMB() (usedMB, totalMB int, err error)
}

// procSampler reads CPU and memory usage from /proc and free disk via statfs.
type procSampler struct {
	fs       procfs.FS
	diskPath string
	probe    AcceleratorProbe

	// previous CPU counters for delta-based utilization
	prevIdle  float64
	prevTotal float64
	havePrev  bool
}

// NewProcSampler builds the default sampler. diskPath is the filesystem whose
// free space is reported (typically the models directory).
func NewProcSampler(diskPath string, probe AcceleratorProbe) (Sampler, error) {
	fs, err := procfs.NewFS("/proc")
	if err != nil {
		return nil, fmt.Errorf("procfs: %w", err)
	}
	return &procSampler{fs: fs, diskPath: diskPath, probe: probe}, nil
}

func (p *procSampler) Sample() (Snapshot, error) {
	snap := Snapshot{TakenAt: time.Now()}

	stat, err := p.fs.Stat()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read /proc/stat: %w", err)
	}
	c := stat.CPUTotal
	idle := c.Idle + c.Iowait
	total := idle + c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
	if p.havePrev && total > p.prevTotal {
		dTotal := total - p.prevTotal
		dIdle := idle - p.prevIdle
		snap.CPUFraction = 1 - dIdle/dTotal
		if snap.CPUFraction < 0 {
			snap.CPUFraction = 0
		}
	}
	p.prevIdle, p.prevTotal, p.havePrev = idle, total, true

	mem, err := p.fs.Meminfo()
	if err != nil {
		return Snapshot{}, fmt.Errorf("read /proc/meminfo: %w", err)
	}
	if mem.MemTotal != nil {
		snap.MemTotalMB = int(*mem.MemTotal / 1024)
	}
	if mem.MemTotal != nil && mem.MemAvailable != nil {
		snap.MemUsedMB = int((*mem.MemTotal - *mem.MemAvailable) / 1024)
	}

	if p.diskPath != "" {
		var st unix.Statfs_t
		if err := unix.Statfs(p.diskPath, &st); err == nil {
			snap.DiskFreeMB = int(st.Bavail * uint64(st.Bsize) / (1024 * 1024))
		}
	}

	if p.probe != nil {
		used, totalMB, err := p.probe.AccelMemoryMB()
		if err != nil {
			return Snapshot{}, fmt.Errorf("accelerator probe: %w", err)
		}
		snap.AccelUsedMB, snap.AccelTotalMB = used, totalMB
	}
	return snap, nil
}
