package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/xerrors"
)

// Settings is a plain value implementation of IService. Environment
// variables override whatever the struct already holds.
type Settings struct {
	ModeMaxShutdownTime int           `env:"LIVENESS_SHUTDOWN_SECONDS"`
	ServiceBaseURL      string        `env:"LIVENESS_SERVICE_URL"`
	StreamBaseURL       string        `env:"LIVENESS_STREAM_URL"`
	RequestTimeout      time.Duration `env:"LIVENESS_REQUEST_TIMEOUT"`
	DialTimeout         time.Duration `env:"LIVENESS_DIAL_TIMEOUT"`
	WriteTimeout        time.Duration `env:"LIVENESS_WRITE_TIMEOUT"`
	ArtifactsFolder     string        `env:"LIVENESS_ARTIFACTS_FOLDER"`
	DataFolder          string        `env:"LIVENESS_DATA_FOLDER"`
	CameraDevice        string        `env:"LIVENESS_CAMERA"`
	CascadePath         string        `env:"LIVENESS_CASCADE"`
	JpegQuality         int           `env:"LIVENESS_JPEG_QUALITY"`
	TargetFPS           int           `env:"LIVENESS_TARGET_FPS"`

	Gate      GateParameters      `envPrefix:"LIVENESS_GATE_"`
	Recording RecordingParameters `envPrefix:"LIVENESS_RECORDING_"`
	Retriever RetrieverParameters `envPrefix:"LIVENESS_RETRIEVER_"`
}

// Snapshot copies every value of svc into a mutable Settings.
func Snapshot(svc IService) *Settings {
	return &Settings{
		ModeMaxShutdownTime: svc.GetModeMaxShutdownTime(),
		ServiceBaseURL:      svc.GetServiceBaseURL(),
		StreamBaseURL:       svc.GetStreamBaseURL(),
		RequestTimeout:      svc.GetRequestTimeout(),
		DialTimeout:         svc.GetDialTimeout(),
		WriteTimeout:        svc.GetWriteTimeout(),
		ArtifactsFolder:     svc.GetArtifactsFolder(),
		DataFolder:          svc.GetDataFolder(),
		CameraDevice:        svc.GetCameraDevice(),
		CascadePath:         svc.GetCascadePath(),
		JpegQuality:         svc.GetJpegQuality(),
		TargetFPS:           svc.GetTargetFPS(),
		Gate:                svc.GetGateParameters(),
		Recording:           svc.GetRecordingParameters(),
		Retriever:           svc.GetRetrieverParameters(),
	}
}

// NewEnv starts from the hardcoded defaults and applies LIVENESS_* overrides.
func NewEnv() (IService, error) {
	settings := Snapshot(NewHardCoded())
	if err := env.Parse(settings); err != nil {
		return nil, xerrors.Errorf("parse env: %w", err)
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Settings) validate() error {
	if s.TargetFPS <= 0 {
		return xerrors.Errorf("target fps must be positive, got %d", s.TargetFPS)
	}
	if s.Gate.RequiredHits <= 0 {
		return xerrors.Errorf("gate required hits must be positive, got %d", s.Gate.RequiredHits)
	}
	if s.Gate.ConfidenceThreshold < 0 || s.Gate.ConfidenceThreshold > 1 {
		return xerrors.Errorf("gate confidence threshold must be within [0,1], got %f", s.Gate.ConfidenceThreshold)
	}
	if s.Recording.Seconds <= 0 || s.Recording.Tick <= 0 {
		return xerrors.New("recording seconds and tick must be positive")
	}
	if s.Retriever.MaxAttempts < 0 {
		return xerrors.Errorf("retriever max attempts cannot be negative, got %d", s.Retriever.MaxAttempts)
	}
	return nil
}

func (s *Settings) GetModeMaxShutdownTime() int                 { return s.ModeMaxShutdownTime }
func (s *Settings) GetServiceBaseURL() string                   { return s.ServiceBaseURL }
func (s *Settings) GetStreamBaseURL() string                    { return s.StreamBaseURL }
func (s *Settings) GetRequestTimeout() time.Duration            { return s.RequestTimeout }
func (s *Settings) GetDialTimeout() time.Duration               { return s.DialTimeout }
func (s *Settings) GetWriteTimeout() time.Duration              { return s.WriteTimeout }
func (s *Settings) GetArtifactsFolder() string                  { return s.ArtifactsFolder }
func (s *Settings) GetDataFolder() string                       { return s.DataFolder }
func (s *Settings) GetCameraDevice() string                     { return s.CameraDevice }
func (s *Settings) GetCascadePath() string                      { return s.CascadePath }
func (s *Settings) GetJpegQuality() int                         { return s.JpegQuality }
func (s *Settings) GetTargetFPS() int                           { return s.TargetFPS }
func (s *Settings) GetGateParameters() GateParameters           { return s.Gate }
func (s *Settings) GetRecordingParameters() RecordingParameters { return s.Recording }
func (s *Settings) GetRetrieverParameters() RetrieverParameters { return s.Retriever }
