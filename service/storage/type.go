package storage

import "github.com/khaledhikmat/vs-liveness/model"

type IService interface {
	// Persist writes the artifact and returns where it landed
	Persist(artifact model.ResultArtifact) (string, error)
}
