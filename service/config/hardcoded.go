package config

import (
	"time"
)

type hardcodedService struct {
}

// NewHardCoded returns the built-in defaults. These mirror the values the
// liveness service was tuned against (25 fps uplink, 15 second recordings).
func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetServiceBaseURL() string {
	return "http://localhost:8001"
}

func (svc *hardcodedService) GetStreamBaseURL() string {
	return "ws://localhost:8001"
}

func (svc *hardcodedService) GetRequestTimeout() time.Duration {
	return 30 * time.Second
}

func (svc *hardcodedService) GetDialTimeout() time.Duration {
	return 30 * time.Second
}

func (svc *hardcodedService) GetWriteTimeout() time.Duration {
	return 30 * time.Second
}

func (svc *hardcodedService) GetArtifactsFolder() string {
	return "./artifacts"
}

func (svc *hardcodedService) GetDataFolder() string {
	return "./data"
}

func (svc *hardcodedService) GetCameraDevice() string {
	return "0"
}

func (svc *hardcodedService) GetCascadePath() string {
	return "./cascades/haarcascade_frontalface_default.xml"
}

func (svc *hardcodedService) GetJpegQuality() int {
	return 90
}

func (svc *hardcodedService) GetTargetFPS() int {
	return 25
}

func (svc *hardcodedService) GetGateParameters() GateParameters {
	return GateParameters{
		RequiredHits:        10,
		ConfidenceThreshold: 0.7,
	}
}

func (svc *hardcodedService) GetRecordingParameters() RecordingParameters {
	return RecordingParameters{
		Seconds:           15,
		Tick:              time.Second,
		MeasurementWindow: time.Second,
	}
}

func (svc *hardcodedService) GetRetrieverParameters() RetrieverParameters {
	return RetrieverParameters{
		GracePeriod: 2 * time.Second,
		Backoff:     2 * time.Second,
		MaxAttempts: 0,
	}
}
