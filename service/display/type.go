package display

import "github.com/khaledhikmat/vs-liveness/model"

// IService presents controller and session information to the operator
type IService interface {
	Render(state model.ControllerState)
	Status(sessionID string, status model.SessionStatus, history []model.SessionStats)
	Saved(sessionID string, path string)
	Close()
}
