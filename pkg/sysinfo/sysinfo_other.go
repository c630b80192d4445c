//go:build !linux

package sysinfo

import (
	"fmt"
	"runtime"
)

// Non-Linux hosts report zeroed readings rather than failing; the
// agent is deployed on Linux, other platforms only need to build for
// development.

func readCPU() (cpuSnapshot, error) {
	return cpuSnapshot{cores: runtime.NumCPU()}, fmt.Errorf("cpu sampling not supported on %s", runtime.GOOS)
}

func readMemory() (used, total uint64, err error) {
	return 0, 0, fmt.Errorf("memory sampling not supported on %s", runtime.GOOS)
}

func readDiskUsage(path string) (uint64, error) {
	return 0, fmt.Errorf("disk sampling not supported on %s", runtime.GOOS)
}

func readUptime() (uint64, error) {
	return 0, fmt.Errorf("uptime sampling not supported on %s", runtime.GOOS)
}
