package config

import "time"

type IService interface {
	GetModeMaxShutdownTime() int
	GetServiceBaseURL() string
	GetStreamBaseURL() string
	GetRequestTimeout() time.Duration
	GetDialTimeout() time.Duration
	GetWriteTimeout() time.Duration
	GetArtifactsFolder() string
	GetDataFolder() string
	GetCameraDevice() string
	GetCascadePath() string
	GetJpegQuality() int
	GetTargetFPS() int
	GetGateParameters() GateParameters
	GetRecordingParameters() RecordingParameters
	GetRetrieverParameters() RetrieverParameters
}

type GateParameters struct {
	RequiredHits        int     `env:"REQUIRED_HITS"`
	ConfidenceThreshold float64 `env:"CONFIDENCE"`
}

type RecordingParameters struct {
	Seconds           int           `env:"SECONDS"`
	Tick              time.Duration `env:"TICK"`
	MeasurementWindow time.Duration `env:"FPS_WINDOW"`
}

type RetrieverParameters struct {
	GracePeriod time.Duration `env:"GRACE"`
	Backoff     time.Duration `env:"BACKOFF"`
	// Zero means unbounded polling while the server answers "not ready"
	MaxAttempts int `env:"MAX_ATTEMPTS"`
}
