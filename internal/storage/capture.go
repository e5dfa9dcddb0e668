// Package storage persists event captures recorded from a robot. Each
// capture is one JSON file under <baseDir>/<robot>/, named by a timestamped
// uid so listings sort chronologically.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventRecord represents an eventRecord.
type EventRecord struct {
	EventName string         `json:"event_name"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// CaptureInfo represents a captureInfo.
type CaptureInfo struct {
	UID         string      `json:"uid"`
	LatestEvent EventRecord `json:"latest_event"`
	Timestamp   string      `json:"timestamp"`
}

var safeNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-\.]+$`)

// CreateCapture executes the createCapture function.
func CreateCapture(baseDir string, robot string) (string, error) {
	if robot == "" {
		return "", errors.New("robot name is empty")
	}
	dir, err := ensureRobotDir(baseDir, robot)
	if err != nil {
		return "", err
	}
	uid := time.Now().Format("2006-01-02_15-04-05") + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	path := filepath.Join(dir, uid+".json")
	if err := writeCapture(path, []EventRecord{}); err != nil {
		return "", err
	}
	return uid, nil
}

// AppendEvent executes the appendEvent function.
func AppendEvent(baseDir string, robot string, captureUID string, record EventRecord) error {
	path, err := capturePath(baseDir, robot, captureUID)
	if err != nil {
		return err
	}
	records, err := readCapture(path)
	if err != nil {
		return err
	}
	if record.Timestamp == "" {
		record.Timestamp = time.Now().Format(time.RFC3339)
	}
	records = append(records, record)
	return writeCapture(path, records)
}

// GetCapture executes the getCapture function.
func GetCapture(baseDir string, robot string, captureUID string) ([]EventRecord, error) {
	path, err := capturePath(baseDir, robot, captureUID)
	if err != nil {
		return nil, err
	}
	return readCapture(path)
}

// DeleteCapture executes the deleteCapture function.
func DeleteCapture(baseDir string, robot string, captureUID string) bool {
	path, err := capturePath(baseDir, robot, captureUID)
	if err != nil {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return os.Remove(path) == nil
}

// ListCaptures executes the listCaptures function.
func ListCaptures(baseDir string, robot string) []CaptureInfo {
	list := []CaptureInfo{}
	dir, err := ensureRobotDir(baseDir, robot)
	if err != nil {
		return list
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return list
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		captureUID := strings.TrimSuffix(entry.Name(), ".json")
		records, err := readCapture(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		info := CaptureInfo{UID: captureUID}
		if len(records) > 0 {
			info.LatestEvent = records[len(records)-1]
			info.Timestamp = info.LatestEvent.Timestamp
		}
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UID > list[j].UID
	})

	return list
}

func ensureRobotDir(baseDir string, robot string) (string, error) {
	if baseDir == "" {
		return "", errors.New("capture base dir is empty")
	}
	if !safeNamePattern.MatchString(robot) {
		return "", errors.New("invalid robot name")
	}
	path := filepath.Join(baseDir, robot)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

func capturePath(baseDir string, robot string, captureUID string) (string, error) {
	if baseDir == "" {
		return "", errors.New("capture base dir is empty")
	}
	if !safeNamePattern.MatchString(robot) || !safeNamePattern.MatchString(captureUID) {
		return "", errors.New("invalid capture path")
	}
	return filepath.Join(baseDir, robot, captureUID+".json"), nil
}

func readCapture(path string) ([]EventRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []EventRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func writeCapture(path string, records []EventRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
