package misty

import (
	"context"
	"net/url"
)

// DeviceInfo is a subset of the robot's device information report.
type DeviceInfo struct {
	IPAddress           string `json:"ipAddress"`
	NetworkConnectivity string `json:"networkConnectivity"`
	RobotID             string `json:"robotId"`
	RobotVersion        string `json:"robotVersion"`
	SerialNumber        string `json:"serialNumber"`
	HardwareInfo        any    `json:"hardwareInfo"`
}

// BatteryState is the robot's battery charge report.
type BatteryState struct {
	ChargePercent float64 `json:"chargePercent"`
	Current       float64 `json:"current"`
	IsCharging    bool    `json:"isCharging"`
	State         string  `json:"state"`
	Temperature   float64 `json:"temperature"`
	Voltage       float64 `json:"voltage"`
}

// GetDeviceInformation returns the robot's device information report.
func (r *Robot) GetDeviceInformation(ctx context.Context) (DeviceInfo, error) {
	var info DeviceInfo
	err := r.rest.GetJSON(ctx, "device", nil, &info)
	return info, err
}

// GetBatteryLevel returns the current battery charge state.
func (r *Robot) GetBatteryLevel(ctx context.Context) (BatteryState, error) {
	var battery BatteryState
	err := r.rest.GetJSON(ctx, "battery", nil, &battery)
	return battery, err
}

// SetDefaultVolume sets the default volume for system audio, 0 to 100.
func (r *Robot) SetDefaultVolume(ctx context.Context, volume int) error {
	if volume < 0 || volume > 100 {
		return validationErrorf("volume", "must be between 0 and 100, got %d", volume)
	}
	_, err := r.rest.Post(ctx, "audio/volume", map[string]any{"Volume": volume})
	return err
}

// GetLogLevel returns the robot's current log level.
func (r *Robot) GetLogLevel(ctx context.Context) (string, error) {
	var level string
	err := r.rest.GetJSON(ctx, "logs/level", nil, &level)
	return level, err
}

// SetLogLevel changes the robot's log level. Accepted levels are Debug,
// Info, Warn and Error.
func (r *Robot) SetLogLevel(ctx context.Context, level string) error {
	switch level {
	case "Debug", "Info", "Warn", "Error":
	default:
		return validationErrorf("level", "must be one of Debug, Info, Warn, Error, got %q", level)
	}
	_, err := r.rest.Post(ctx, "logs/level", map[string]any{"LogLevel": level})
	return err
}

// Help returns usage information for an API command, or an overview of all
// commands when command is empty.
func (r *Robot) Help(ctx context.Context, command string) (string, error) {
	var query url.Values
	if command != "" {
		query = url.Values{"command": {command}}
	}
	raw, err := r.rest.Get(ctx, "help", query)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
