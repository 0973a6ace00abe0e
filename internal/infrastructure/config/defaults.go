package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultWorkerPoll      = 1 * time.Second
	DefaultWorkerBatch     = 10
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
)
