package data

import "github.com/khaledhikmat/vs-liveness/model"

type IService interface {
	NewError(err interface{}) error
	NewUplinkStats(stats model.UplinkStats) error
	NewSessionStats(stats model.SessionStats) error
	NewControllerStats(stats model.ControllerStats) error
	NewFramerStats(stats model.FramerStats) error

	RetrieveSessionStats(sessionID string) ([]model.SessionStats, error)
}
