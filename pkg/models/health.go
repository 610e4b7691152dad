package models

// HostInfo describes the machine the generation service runs on
type HostInfo struct {
	CPUThreads     int     `json:"cpu_threads"`
	RAMTotalBytes  uint64  `json:"ram_total_bytes"`
	RAMUsedPercent float64 `json:"ram_used_percent"`
}

// HealthStatus is the body of GET /api/health
type HealthStatus struct {
	Status   string    `json:"status"`
	MediaDir string    `json:"media_dir,omitempty"`
	Renderer string    `json:"renderer,omitempty"` // "simulated" for the reference service
	Jobs     int       `json:"jobs"`
	Host     *HostInfo `json:"host,omitempty"`
}
