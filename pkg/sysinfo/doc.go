/*
Package sysinfo samples local system resource usage for the agent's
heartbeat emitter.

Readings come straight from the kernel interfaces on Linux:

  - CPU: /proc/stat aggregate counters, usage computed as the busy
    share of the delta between consecutive samples (the first sample
    after startup reports zero)
  - Memory: MemTotal and MemAvailable from /proc/meminfo
  - Disk: statfs on the configured path (used = blocks - free)
  - Uptime: /proc/uptime

On non-Linux platforms every probe returns zero values; the agent only
targets Linux hosts, other platforms just need to compile.

# Usage

	sampler := sysinfo.NewSampler("/var/lib/roost-agent")

	sample, err := sampler.Sample(ctx)
	// sample.CPUPercent, sample.MemoryUsage, ...

Individual probe failures zero the affected field instead of failing
the sample: a heartbeat with partial data is more useful than a
missed one.

# Concurrency

A Sampler is safe for concurrent use; the CPU delta state is guarded
internally. In practice the emitter is the only caller and samples
sequentially.
*/
package sysinfo
