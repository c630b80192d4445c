package sysinfo

import (
	"context"
	"sync"
)

// Sample is one reading of local system resource usage
type Sample struct {
	CPUPercent    float64
	CPUCores      int
	MemoryUsage   uint64
	MemoryLimit   uint64
	DiskUsage     uint64
	UptimeSeconds uint64
}

// Sampler reads local resource usage. CPU usage is computed from the
// delta between consecutive samples, so the first call after startup
// reports zero CPU.
type Sampler struct {
	diskPath string

	mu      sync.Mutex
	prev    cpuSnapshot
	hasPrev bool
}

type cpuSnapshot struct {
	busy  uint64
	total uint64
	cores int
}

// NewSampler creates a sampler. diskPath is the filesystem whose
// usage is reported (typically the agent's data directory).
func NewSampler(diskPath string) *Sampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Sampler{diskPath: diskPath}
}

// Sample takes one reading. Individual probe failures zero the
// affected field rather than failing the whole sample; a heartbeat
// with partial data beats no heartbeat.
func (s *Sampler) Sample(ctx context.Context) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Sample{}

	if cur, err := readCPU(); err == nil {
		out.CPUCores = cur.cores
		out.CPUPercent = s.cpuPercent(cur)
	}

	if used, total, err := readMemory(); err == nil {
		out.MemoryUsage = used
		out.MemoryLimit = total
	}

	if used, err := readDiskUsage(s.diskPath); err == nil {
		out.DiskUsage = used
	}

	if uptime, err := readUptime(); err == nil {
		out.UptimeSeconds = uptime
	}

	return out, nil
}

func (s *Sampler) cpuPercent(cur cpuSnapshot) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasPrev {
		s.prev = cur
		s.hasPrev = true
		return 0
	}

	prev := s.prev
	s.prev = cur

	totalDelta := cur.total - prev.total
	if cur.total < prev.total || totalDelta == 0 {
		return 0
	}

	busyDelta := cur.busy - prev.busy
	if cur.busy < prev.busy {
		return 0
	}

	pct := float64(busyDelta) / float64(totalDelta) * 100
	if pct < 0 {
		pct = 0
	}
	if max := float64(cur.cores) * 100; cur.cores > 0 && pct > max {
		pct = max
	}
	return pct
}
