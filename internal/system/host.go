package system

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine a render runs on.
type HostStats struct {
	LogicalCPUs  int
	PhysicalCPUs int
	TotalMemory  uint64
	FreeMemory   uint64
}

// ReadHostStats falls back to the Go runtime's CPU count when gopsutil
// cannot read the host.
func ReadHostStats() HostStats {
	s := HostStats{LogicalCPUs: runtime.NumCPU(), PhysicalCPUs: runtime.NumCPU()}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		s.LogicalCPUs = n
	}
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		s.PhysicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.TotalMemory = vm.Total
		s.FreeMemory = vm.Available
	}
	return s
}

// DefaultWorkers bounds render workers by cores and by how many frame
// buffers of frameBytes fit in half the available memory. Each worker
// holds a frame plus ffmpeg's pipe buffer.
func (s HostStats) DefaultWorkers(frameBytes int) int {
	workers := s.LogicalCPUs
	if s.FreeMemory > 0 && frameBytes > 0 {
		byMem := int(s.FreeMemory / 2 / uint64(frameBytes*4))
		if byMem < workers {
			workers = byMem
		}
	}
	return max(workers, 1)
}

func (s HostStats) String() string {
	if s.TotalMemory == 0 {
		return fmt.Sprintf("%d CPUs (%d physical)", s.LogicalCPUs, s.PhysicalCPUs)
	}
	return fmt.Sprintf("%d CPUs (%d physical), %s free of %s",
		s.LogicalCPUs, s.PhysicalCPUs, humanize.Bytes(s.FreeMemory), humanize.Bytes(s.TotalMemory))
}
