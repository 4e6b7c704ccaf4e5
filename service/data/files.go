package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khaledhikmat/vs-liveness/model"
	"github.com/khaledhikmat/vs-liveness/service/config"
	"golang.org/x/xerrors"
)

const (
	errorsFile          = "errors"
	uplinkStatsFile     = "uplink-stats"
	sessionStatsFile    = "session-stats"
	controllerStatsFile = "controller-stats"
	framerStatsFile     = "framer-stats"
)

// filesDBService keeps one JSON array per entity kind in the data folder
type filesDBService struct {
	CfgSvc config.IService
	mu     sync.Mutex
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	default:
		return xerrors.Errorf("unsupported error value %T", err)
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	// Create an error object to persist
	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return newEntity(svc, errorData, errorsFile)
}

func (svc *filesDBService) NewUplinkStats(stats model.UplinkStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, uplinkStatsFile)
}

func (svc *filesDBService) NewSessionStats(stats model.SessionStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, sessionStatsFile)
}

func (svc *filesDBService) NewControllerStats(stats model.ControllerStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, controllerStatsFile)
}

func (svc *filesDBService) NewFramerStats(stats model.FramerStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, framerStatsFile)
}

// RetrieveSessionStats returns the recorded outcomes of sessionID, oldest first
func (svc *filesDBService) RetrieveSessionStats(sessionID string) ([]model.SessionStats, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	all, err := retrieveEntities[model.SessionStats](svc.path(sessionStatsFile))
	if err != nil {
		return nil, err
	}

	result := []model.SessionStats{}
	for _, s := range all {
		if s.SessionID == sessionID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (svc *filesDBService) path(filename string) string {
	return filepath.Join(svc.CfgSvc.GetDataFolder(), fmt.Sprintf("%s.json", filename))
}

func newEntity[T any](svc *filesDBService, entity T, filename string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	output := svc.path(filename)
	entities, err := retrieveEntities[T](output)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	// Marshal the entity data to JSON
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshal %s: %w", filename, err)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return xerrors.Errorf("create data folder: %w", err)
	}

	// Write the JSON data to the file (with truncation)
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return xerrors.Errorf("write %s: %w", filename, err)
	}

	return nil
}

func retrieveEntities[T any](input string) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(input)
	if errors.Is(err, os.ErrNotExist) {
		// Nothing recorded yet
		return entities, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("read %s: %w", input, err)
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, xerrors.Errorf("unmarshal %s: %w", input, err)
	}

	return entities, nil
}
