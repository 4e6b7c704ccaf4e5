package storage

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"golang.org/x/xerrors"
)

type localService struct {
	CfgSvc config.IService
}

func NewLocal(cfgsvc config.IService) IService {
	return &localService{
		CfgSvc: cfgsvc,
	}
}

func (svc *localService) Persist(artifact model.ResultArtifact) (string, error) {
	name := filepath.Base(strings.TrimSpace(artifact.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", xerrors.Errorf("invalid artifact filename %q", artifact.Filename)
	}

	folder := svc.CfgSvc.GetArtifactsFolder()
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", xerrors.Errorf("create artifacts folder: %w", err)
	}

	path := filepath.Join(folder, name)
	// Readers only ever see a complete file
	tmp, err := os.CreateTemp(folder, "."+name+".*")
	if err != nil {
		return "", xerrors.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(artifact.Bytes); err != nil {
		_ = tmp.Close()
		return "", xerrors.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", xerrors.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", xerrors.Errorf("move artifact into place: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
