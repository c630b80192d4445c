//go:build linux

package sysinfo

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// readCPU parses the aggregate line of /proc/stat and counts cores
func readCPU() (cpuSnapshot, error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return cpuSnapshot{}, fmt.Errorf("failed to read /proc/stat: %w", err)
	}

	var snap cpuSnapshot
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "cpu") {
			continue
		}

		if fields[0] != "cpu" {
			snap.cores++
			continue
		}

		// cpu user nice system idle iowait irq softirq steal ...
		var values []uint64
		for _, f := range fields[1:] {
			v, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				break
			}
			values = append(values, v)
		}
		if len(values) < 4 {
			return cpuSnapshot{}, fmt.Errorf("malformed cpu line in /proc/stat: %q", line)
		}

		for i, v := range values {
			snap.total += v
			// idle and iowait are the non-busy columns
			if i != 3 && i != 4 {
				snap.busy += v
			}
		}
	}

	if snap.total == 0 {
		return cpuSnapshot{}, fmt.Errorf("no cpu line in /proc/stat")
	}
	return snap, nil
}

// readMemory returns used and total bytes from /proc/meminfo
func readMemory() (used, total uint64, err error) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read /proc/meminfo: %w", err)
	}

	var memTotal, memAvailable uint64
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			memTotal = value * 1024
		case "MemAvailable:":
			memAvailable = value * 1024
		}
	}

	if memTotal == 0 {
		return 0, 0, fmt.Errorf("MemTotal missing from /proc/meminfo")
	}
	if memAvailable > memTotal {
		memAvailable = memTotal
	}
	return memTotal - memAvailable, memTotal, nil
}

// readDiskUsage returns used bytes on the filesystem holding path
func readDiskUsage(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}

	blockSize := uint64(stat.Bsize)
	total := stat.Blocks * blockSize
	free := stat.Bfree * blockSize
	if free > total {
		return 0, nil
	}
	return total - free, nil
}

// readUptime returns whole seconds from /proc/uptime
func readUptime() (uint64, error) {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, fmt.Errorf("failed to read /proc/uptime: %w", err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty /proc/uptime")
	}

	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed /proc/uptime: %w", err)
	}
	return uint64(seconds), nil
}
