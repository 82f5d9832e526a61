// Package sysinfo collects the host record written once per session into
// meta.json: enough to tell two recordings apart on hardware/OS grounds
// without carrying the full fleet-inventory surface the teacher's
// collectors package exposes.
package sysinfo

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Host is the host-machine record embedded in meta.json.
type Host struct {
	Hostname     string `json:"hostname"`
	OSType       string `json:"os_type"`
	OSVersion    string `json:"os_version"`
	Architecture string `json:"architecture"`
	CPUModel     string `json:"cpu_model"`
	CPUCores     int    `json:"cpu_cores"`
	CPUThreads   int    `json:"cpu_threads"`
	RAMTotalMB   uint64 `json:"ram_total_mb"`
}

// Meta is the full meta.json document: the host record plus the session
// framing fields the pipeline already knows at write time.
type Meta struct {
	SessionName string    `json:"session_name"`
	StartedAt   time.Time `json:"started_at"`
	Host        Host      `json:"host"`
}

// Collect gathers the host record. Individual fields degrade silently to
// their zero value on a gopsutil error — meta.json is diagnostic
// metadata, never load-bearing for downstream training, so a partial
// record beats a failed session.
func Collect() Host {
	h := Host{Architecture: runtime.GOARCH}

	if info, err := host.Info(); err == nil {
		h.Hostname = info.Hostname
		h.OSType = normalizeOSType(info.OS)
		h.OSVersion = info.Platform + " " + info.PlatformVersion
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		h.CPUModel = cpuInfo[0].ModelName
		h.CPUCores = int(cpuInfo[0].Cores)
	}
	if threads, err := cpu.Counts(true); err == nil {
		h.CPUThreads = threads
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		h.RAMTotalMB = vmem.Total / 1024 / 1024
	}

	return h
}

func normalizeOSType(os string) string {
	if os == "darwin" {
		return "macos"
	}
	return os
}
