package shared

import "time"

// AgentReport is the POST /agent body. Pointers distinguish a missing field
// from a zero value; all six are required.
type AgentReport struct {
	ServerName    *string  `json:"server_name"`
	ServerIP      *string  `json:"server_ip"`
	NetworkStatus *string  `json:"network_status"`
	CPUUsage      *float64 `json:"cpu_usage"`
	MemoryUsage   *float64 `json:"memory_usage"`
	DiskUsage     *float64 `json:"disk_usage"`
}

// AgentRecord is the GET /agent/{id} response.
type AgentRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	ServerName    string    `json:"server_name"`
	ServerIP      string    `json:"server_ip"`
	NetworkStatus string    `json:"network_status"`
	CPUUsage      float64   `json:"cpu_usage"`
	MemoryUsage   float64   `json:"memory_usage"`
	DiskUsage     float64   `json:"disk_usage"`
}

// ServerEntry is one element of the GET /servers response. It carries the
// row id instead of the timestamp.
type ServerEntry struct {
	ID            int64   `json:"id"`
	ServerName    string  `json:"server_name"`
	ServerIP      string  `json:"server_ip"`
	NetworkStatus string  `json:"network_status"`
	CPUUsage      float64 `json:"cpu_usage"`
	MemoryUsage   float64 `json:"memory_usage"`
	DiskUsage     float64 `json:"disk_usage"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
