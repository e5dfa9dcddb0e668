package misty

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// SlamMap is the occupancy grid for the active map. Cell values: 0 unknown,
// 1 open, 2 occupied, 3 covered.
type SlamMap struct {
	Grid          []int   `json:"grid"`
	Height        int     `json:"height"`
	Width         int     `json:"width"`
	IsValid       bool    `json:"isValid"`
	MetersPerCell float64 `json:"metersPerCell"`
	OriginX       float64 `json:"originX"`
	OriginY       float64 `json:"originY"`
}

// SlamMapInfo identifies one stored map.
type SlamMapInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// HazardSettings is the hazard system configuration for the bump and
// time-of-flight sensors.
type HazardSettings struct {
	BumpSensors         []BumpSensorSetting `json:"bumpSensors"`
	TimeOfFlightSensors []TOFSensorSetting  `json:"timeOfFlightSensors"`
}

// BumpSensorSetting reports whether hazards are enabled for one bump sensor.
type BumpSensorSetting struct {
	SensorName string `json:"sensorName"`
	Enabled    bool   `json:"enabled"`
}

// TOFSensorSetting is the hazard distance threshold for one time-of-flight
// sensor; a threshold of 0 disables hazards for it.
type TOFSensorSetting struct {
	SensorName string  `json:"sensorName"`
	Threshold  float64 `json:"threshold"`
}

// HazardUpdate adjusts the hazard system. Only the listed sensors change;
// settings reset to defaults on reboot.
type HazardUpdate struct {
	RevertToDefault       bool
	DisableTimeOfFlights  bool
	DisableBumpSensors    bool
	BumpSensorsEnabled    []BumpSensorSetting
	TimeOfFlightThreshold []TOFSensorSetting
}

// ExposureGain holds camera exposure (seconds) and gain (dB) levels for the
// depth sensor.
type ExposureGain struct {
	Exposure float64 `json:"exposure"`
	Gain     int     `json:"gain"`
}

// Waypoint is one cell coordinate in the occupancy grid.
type Waypoint struct {
	X int
	Y int
}

// FollowPathParams tune path following. Zero values fall back to the
// robot's defaults: velocity 0.5, full spin duration 15 s, waypoint
// accuracy 0.1 m, rotate threshold 10 degrees.
type FollowPathParams struct {
	Velocity         float64
	FullSpinDuration float64
	WaypointAccuracy float64
	RotateThreshold  float64
}

// DepthImage is a matrix of distances in millimeters from the depth sensor;
// nil entries are cells the sensor could not resolve.
type DepthImage struct {
	Image  []*float64 `json:"image"`
	Height int        `json:"height"`
	Width  int        `json:"width"`
}

// StartMapping begins mapping an area.
func (r *Robot) StartMapping(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "slam/map/start", nil)
	return err
}

// StopMapping stops the mapping process.
func (r *Robot) StopMapping(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "slam/map/stop", nil)
	return err
}

// GetMap returns the occupancy grid for the currently active map.
func (r *Robot) GetMap(ctx context.Context) (SlamMap, error) {
	var m SlamMap
	err := r.rest.GetJSON(ctx, "slam/map", nil, &m)
	return m, err
}

// GetCurrentSlamMap returns the key of the currently active map.
func (r *Robot) GetCurrentSlamMap(ctx context.Context) (string, error) {
	var key string
	err := r.rest.GetJSON(ctx, "slam/map/current", nil, &key)
	return key, err
}

// GetSlamMaps lists the keys and names of the stored maps.
func (r *Robot) GetSlamMaps(ctx context.Context) ([]SlamMapInfo, error) {
	var maps []SlamMapInfo
	err := r.rest.GetJSON(ctx, "slam/map/ids", nil, &maps)
	return maps, err
}

// RenameSlamMap renames the stored map identified by key.
func (r *Robot) RenameSlamMap(ctx context.Context, key string, name string) error {
	_, err := r.rest.Post(ctx, "slam/map/rename", map[string]any{
		"Key":  key,
		"Name": name,
	})
	return err
}

// DeleteSlamMap deletes the stored map identified by key.
func (r *Robot) DeleteSlamMap(ctx context.Context, key string) error {
	return r.rest.Delete(ctx, "slam/map", map[string]any{"Key": key})
}

// StartTracking makes the robot start tracking its location on the active
// map. Required before DriveToLocation and FollowPath.
func (r *Robot) StartTracking(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "slam/track/start", nil)
	return err
}

// StopTracking stops location tracking.
func (r *Robot) StopTracking(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "slam/track/stop", nil)
	return err
}

// DriveToLocation drives to the occupancy grid cell at (x, y).
func (r *Robot) DriveToLocation(ctx context.Context, x int, y int) error {
	_, err := r.rest.Post(ctx, "drive/coordinates", map[string]any{
		"Destination": fmt.Sprintf("%d:%d", x, y),
	})
	return err
}

// FollowPath drives along the given waypoints. The robot cannot follow a
// path through unmapped obstacles.
func (r *Robot) FollowPath(ctx context.Context, path []Waypoint, params FollowPathParams) error {
	if len(path) == 0 {
		return validationErrorf("path", "must contain at least one waypoint")
	}
	if params.Velocity == 0 {
		params.Velocity = 0.5
	}
	if params.FullSpinDuration == 0 {
		params.FullSpinDuration = 15
	}
	if params.WaypointAccuracy == 0 {
		params.WaypointAccuracy = 0.1
	}
	if params.RotateThreshold == 0 {
		params.RotateThreshold = 10
	}
	if params.Velocity <= 0 || params.Velocity >= 1 {
		return validationErrorf("velocity", "must be between 0 and 1 exclusive, got %v", params.Velocity)
	}
	if params.WaypointAccuracy <= 0 {
		return validationErrorf("waypoint accuracy", "must be greater than 0, got %v", params.WaypointAccuracy)
	}
	if params.RotateThreshold < 0 || params.RotateThreshold > 360 {
		return validationErrorf("rotate threshold", "must be between 0 and 360, got %v", params.RotateThreshold)
	}

	coords := make([]string, len(path))
	for i, wp := range path {
		coords[i] = fmt.Sprintf("%d:%d", wp.X, wp.Y)
	}
	_, err := r.rest.Post(ctx, "drive/path", map[string]any{
		"Path":             strings.Join(coords, ","),
		"Velocity":         params.Velocity,
		"FullSpinDuration": params.FullSpinDuration,
		"WaypointAccuracy": params.WaypointAccuracy,
		"RotateThreshold":  params.RotateThreshold,
	})
	return err
}

// ResetSlam resets the SLAM sensors.
func (r *Robot) ResetSlam(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "slam/reset", nil)
	return err
}

// StartSlamStreaming opens the depth sensor data stream so image and depth
// data are available while not mapping or tracking. Close it again with
// StopSlamStreaming to turn the sensor's laser off.
func (r *Robot) StartSlamStreaming(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "slam/streaming/start", nil)
	return err
}

// StopSlamStreaming closes the depth sensor data stream.
func (r *Robot) StopSlamStreaming(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "slam/streaming/stop", nil)
	return err
}

// GetSlamIrExposureAndGain returns the current settings for the infrared
// cameras in the depth sensor.
func (r *Robot) GetSlamIrExposureAndGain(ctx context.Context) (ExposureGain, error) {
	var eg ExposureGain
	err := r.rest.GetJSON(ctx, "slam/settings/ir", nil, &eg)
	return eg, err
}

// SetSlamIrExposureAndGain sets exposure (seconds, [0.001, 0.033]) and gain
// (dB, 0 to 3) for the infrared cameras. Changing these can degrade SLAM
// performance. Requires an open SLAM stream to take effect.
func (r *Robot) SetSlamIrExposureAndGain(ctx context.Context, exposure float64, gain int) error {
	if exposure < 0.001 || exposure > 0.033 {
		return validationErrorf("exposure", "must be between 0.001 and 0.033, got %v", exposure)
	}
	if gain < 0 || gain > 3 {
		return validationErrorf("gain", "must be between 0 and 3, got %d", gain)
	}
	_, err := r.rest.Post(ctx, "slam/settings/ir", map[string]any{
		"Exposure": exposure,
		"Gain":     gain,
	})
	return err
}

// GetSlamVisibleExposureAndGain returns the current settings for the
// fisheye camera in the depth sensor.
func (r *Robot) GetSlamVisibleExposureAndGain(ctx context.Context) (ExposureGain, error) {
	var eg ExposureGain
	err := r.rest.GetJSON(ctx, "slam/settings/visible", nil, &eg)
	return eg, err
}

// SetSlamVisibleExposureAndGain sets exposure (seconds, [0.001, 0.033]) and
// gain (dB, 0 to 8) for the fisheye camera. Requires an open SLAM stream to
// take effect.
func (r *Robot) SetSlamVisibleExposureAndGain(ctx context.Context, exposure float64, gain int) error {
	if exposure < 0.001 || exposure > 0.033 {
		return validationErrorf("exposure", "must be between 0.001 and 0.033, got %v", exposure)
	}
	if gain < 0 || gain > 8 {
		return validationErrorf("gain", "must be between 0 and 8, got %d", gain)
	}
	_, err := r.rest.Post(ctx, "slam/settings/visible", map[string]any{
		"Exposure": exposure,
		"Gain":     gain,
	})
	return err
}

// GetSlamNavigationDiagnostics returns the raw diagnostic blob for the SLAM
// system. Its contents are unstable across system updates.
func (r *Robot) GetSlamNavigationDiagnostics(ctx context.Context) (string, error) {
	raw, err := r.rest.Get(ctx, "slam/diagnostics", nil)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetHazardSettings returns the current hazard system settings.
func (r *Robot) GetHazardSettings(ctx context.Context) (HazardSettings, error) {
	var settings HazardSettings
	err := r.rest.GetJSON(ctx, "hazards/settings", nil, &settings)
	return settings, err
}

// UpdateHazardSettings changes the hazard system settings. The robot cannot
// safely drive over ledges taller than 0.06 m; disabling hazards risks
// damage.
func (r *Robot) UpdateHazardSettings(ctx context.Context, update HazardUpdate) error {
	params := map[string]any{
		"RevertToDefault":      update.RevertToDefault,
		"DisableTimeOfFlights": update.DisableTimeOfFlights,
		"DisableBumpSensors":   update.DisableBumpSensors,
	}
	if len(update.BumpSensorsEnabled) > 0 {
		params["BumpSensorsEnabled"] = update.BumpSensorsEnabled
	}
	if len(update.TimeOfFlightThreshold) > 0 {
		params["TimeOfFlightThresholds"] = update.TimeOfFlightThreshold
	}
	_, err := r.rest.Post(ctx, "hazard/updatebasesettings", params)
	return err
}

// TakeDepthPicture returns the current depth matrix from the depth sensor.
func (r *Robot) TakeDepthPicture(ctx context.Context) (DepthImage, error) {
	var img DepthImage
	err := r.rest.GetJSON(ctx, "cameras/depth", nil, &img)
	return img, err
}

// TakeFisheyePicture takes a picture with the fisheye camera and returns
// the decoded PNG bytes.
func (r *Robot) TakeFisheyePicture(ctx context.Context) ([]byte, error) {
	var result struct {
		Base64 string `json:"base64"`
	}
	query := url.Values{"Base64": {"true"}}
	if err := r.rest.GetJSON(ctx, "cameras/fisheye", query, &result); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(result.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode fisheye image: %w", err)
	}
	return data, nil
}
