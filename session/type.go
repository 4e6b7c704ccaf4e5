package session

import (
	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"github.com/khaledhikmat/vs-liveness/service/liveness"
	"github.com/khaledhikmat/vs-liveness/service/storage"
	"github.com/khaledhikmat/vs-liveness/service/stream"
)

// ServicesFactory carries the collaborators a controller talks to
type ServicesFactory struct {
	CfgSvc      config.IService
	LivenessSvc liveness.IService
	StreamSvc   stream.IService
	StorageSvc  storage.IService
}

type command int

const (
	cmdStartRecording command = iota
	cmdStopRecording
	cmdResetSession
)

func (c command) String() string {
	switch c {
	case cmdStartRecording:
		return "start_recording"
	case cmdStopRecording:
		return "stop_recording"
	default:
		return "reset_session"
	}
}

// Results of background work. gen is the controller generation at launch;
// anything older than the current generation is ignored.
type handshakeDone struct {
	gen       uint64
	sessionID string
	err       error
}

type connectDone struct {
	gen       uint64
	sessionID string
	err       error
}

type fetchDone struct {
	gen       uint64
	sessionID string
	artifact  model.ResultArtifact
	path      string
	err       error
}
