// Package sim is an in-memory stand-in for a Misty II robot. It serves the
// REST command surface and the /pubsub event endpoint so client code can be
// exercised without hardware on the network.
package sim

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/misty-community/misty-go/internal/slam"
)

// AudioAsset represents an audioAsset.
type AudioAsset struct {
	Name        string `json:"name"`
	SystemAsset bool   `json:"systemAsset"`
	Data        []byte `json:"-"`
}

// ImageAsset represents an imageAsset.
type ImageAsset struct {
	Name        string `json:"name"`
	Height      int    `json:"height"`
	Width       int    `json:"width"`
	SystemAsset bool   `json:"systemAsset"`
}

// SkillRecord represents a skillRecord.
type SkillRecord struct {
	Name     string
	UniqueID string
	Running  bool
	Archive  []byte
}

// MapRecord represents a mapRecord.
type MapRecord struct {
	Key  string
	Name string
}

// State holds the simulated robot. All access goes through its methods; the
// zero value is not usable, construct with NewState.
type State struct {
	mu sync.Mutex

	serial    string
	startedAt time.Time

	chargePercent float64
	charging      bool

	volume   int
	logLevel string

	headPitch float64
	headRoll  float64
	headYaw   float64

	leftArm  float64
	rightArm float64

	linearVelocity  float64
	angularVelocity float64
	driving         bool

	audio  map[string]*AudioAsset
	images map[string]*ImageAsset
	skills map[string]*SkillRecord

	maps       []*MapRecord
	currentMap string
	slam       *slam.Machine

	hazardsDisabled map[string]bool

	irExposure      float64
	irGain          int
	visibleExposure float64
	visibleGain     int
}

// NewState executes the newState function.
func NewState() *State {
	s := &State{
		serial:          "sim-" + uuid.NewString()[:8],
		startedAt:       time.Now(),
		chargePercent:   0.87,
		volume:          50,
		logLevel:        "Info",
		audio:           make(map[string]*AudioAsset),
		images:          make(map[string]*ImageAsset),
		skills:          make(map[string]*SkillRecord),
		hazardsDisabled: make(map[string]bool),
		slam:            slam.New(),
		irExposure:      0.015,
		irGain:          1,
		visibleExposure: 0.015,
		visibleGain:     2,
	}
	for _, name := range []string{"s_Awe.wav", "s_Joy.wav", "s_Annoyance.wav"} {
		s.audio[name] = &AudioAsset{Name: name, SystemAsset: true}
	}
	for _, name := range []string{"e_DefaultContent.jpg", "e_Joy.jpg"} {
		s.images[name] = &ImageAsset{Name: name, Height: 480, Width: 480, SystemAsset: true}
	}
	firstMap := &MapRecord{Key: "Map_" + uuid.NewString(), Name: "Map 1"}
	s.maps = []*MapRecord{firstMap}
	s.currentMap = firstMap.Key
	return s
}

// DeviceInfo executes the deviceInfo method.
func (s *State) DeviceInfo() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"ipAddress":           "127.0.0.1",
		"networkConnectivity": "InternetAccess",
		"robotId":             s.serial,
		"robotVersion":        "1.23.2.10075",
		"serialNumber":        s.serial,
		"hardwareInfo":        map[string]any{"simulated": true},
	}
}

// Battery executes the battery method.
func (s *State) Battery() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := "Discharging"
	current := -0.42
	if s.charging {
		state = "Charging"
		current = 0.6
	}
	return map[string]any{
		"chargePercent": s.chargePercent,
		"current":       current,
		"isCharging":    s.charging,
		"state":         state,
		"temperature":   31.0,
		"voltage":       7.2 + s.chargePercent,
	}
}

// SetVolume executes the setVolume method.
func (s *State) SetVolume(volume int) error {
	if volume < 0 || volume > 100 {
		return fmt.Errorf("volume %d out of range", volume)
	}
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
	return nil
}

// Volume executes the volume method.
func (s *State) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// SetLogLevel executes the setLogLevel method.
func (s *State) SetLogLevel(level string) error {
	switch level {
	case "Debug", "Info", "Warn", "Error":
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	s.mu.Lock()
	s.logLevel = level
	s.mu.Unlock()
	return nil
}

// LogLevel executes the logLevel method.
func (s *State) LogLevel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logLevel
}

// SetDrive executes the setDrive method.
func (s *State) SetDrive(linear float64, angular float64) {
	s.mu.Lock()
	s.linearVelocity = linear
	s.angularVelocity = angular
	s.driving = linear != 0 || angular != 0
	s.mu.Unlock()
}

// StopDrive executes the stopDrive method.
func (s *State) StopDrive() {
	s.SetDrive(0, 0)
}

// SetHead executes the setHead method.
func (s *State) SetHead(pitch float64, roll float64, yaw float64) {
	s.mu.Lock()
	s.headPitch = pitch
	s.headRoll = roll
	s.headYaw = yaw
	s.mu.Unlock()
}

// SetArm executes the setArm method.
func (s *State) SetArm(arm string, position float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch arm {
	case "left":
		s.leftArm = position
	case "right":
		s.rightArm = position
	default:
		return fmt.Errorf("unknown arm %q", arm)
	}
	return nil
}

// SetArms executes the setArms method.
func (s *State) SetArms(left float64, right float64) {
	s.mu.Lock()
	s.leftArm = left
	s.rightArm = right
	s.mu.Unlock()
}

// AudioList executes the audioList method.
func (s *State) AudioList() []AudioAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AudioAsset, 0, len(s.audio))
	for _, a := range s.audio {
		out = append(out, *a)
	}
	return out
}

// SaveAudio executes the saveAudio method.
func (s *State) SaveAudio(name string, data []byte, overwrite bool) error {
	if name == "" {
		return fmt.Errorf("file name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.audio[name]; ok {
		if existing.SystemAsset {
			return fmt.Errorf("cannot overwrite system asset %q", name)
		}
		if !overwrite {
			return fmt.Errorf("audio file %q already exists", name)
		}
	}
	s.audio[name] = &AudioAsset{Name: name, Data: data}
	return nil
}

// DeleteAudio executes the deleteAudio method.
func (s *State) DeleteAudio(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.audio[name]
	if !ok {
		return fmt.Errorf("no audio file named %q", name)
	}
	if asset.SystemAsset {
		return fmt.Errorf("cannot delete system asset %q", name)
	}
	delete(s.audio, name)
	return nil
}

// HasAudio executes the hasAudio method.
func (s *State) HasAudio(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.audio[name]
	return ok
}

// ImageList executes the imageList method.
func (s *State) ImageList() []ImageAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ImageAsset, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, *img)
	}
	return out
}

// DeleteImage executes the deleteImage method.
func (s *State) DeleteImage(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[name]
	if !ok {
		return fmt.Errorf("no image file named %q", name)
	}
	if img.SystemAsset {
		return fmt.Errorf("cannot delete system asset %q", name)
	}
	delete(s.images, name)
	return nil
}

// Skills executes the skills method.
func (s *State) Skills(runningOnly bool) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []map[string]any{}
	for _, skill := range s.skills {
		if runningOnly && !skill.Running {
			continue
		}
		out = append(out, map[string]any{
			"name":     skill.Name,
			"uniqueId": skill.UniqueID,
		})
	}
	return out
}

// SaveSkill executes the saveSkill method.
func (s *State) SaveSkill(name string, archive []byte, overwrite bool) error {
	if name == "" {
		return fmt.Errorf("skill name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skills[name]; ok && !overwrite {
		return fmt.Errorf("skill %q already exists", name)
	}
	s.skills[name] = &SkillRecord{Name: name, UniqueID: uuid.NewString(), Archive: archive}
	return nil
}

// RunSkill executes the runSkill method.
func (s *State) RunSkill(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, skill := range s.skills {
		if skill.Name == id || skill.UniqueID == id {
			skill.Running = true
			return nil
		}
	}
	return fmt.Errorf("no skill matching %q", id)
}

// CancelSkill cancels one skill by name or id, or all running skills when id
// is empty.
func (s *State) CancelSkill(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		for _, skill := range s.skills {
			skill.Running = false
		}
		return nil
	}
	for _, skill := range s.skills {
		if skill.Name == id || skill.UniqueID == id {
			skill.Running = false
			return nil
		}
	}
	return fmt.Errorf("no skill matching %q", id)
}

// DeleteSkill executes the deleteSkill method.
func (s *State) DeleteSkill(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.skills[name]; !ok {
		return fmt.Errorf("no skill named %q", name)
	}
	delete(s.skills, name)
	return nil
}

// StartMapping executes the startMapping method.
func (s *State) StartMapping() {
	s.slam.OnMappingStart()
}

// StopMapping finishes the mapping session and stores the produced map.
func (s *State) StopMapping() *MapRecord {
	if !s.slam.OnMappingStop() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record := &MapRecord{
		Key:  "Map_" + uuid.NewString(),
		Name: fmt.Sprintf("Map %d", len(s.maps)+1),
	}
	s.maps = append(s.maps, record)
	s.currentMap = record.Key
	return record
}

// SetTracking executes the setTracking method.
func (s *State) SetTracking(on bool) {
	if on {
		s.slam.OnTrackingStart()
	} else {
		s.slam.OnTrackingStop()
	}
}

// SetStreaming executes the setStreaming method.
func (s *State) SetStreaming(on bool) {
	s.slam.SetStreaming(on)
}

// ResetSlam executes the resetSlam method.
func (s *State) ResetSlam() {
	s.slam.Reset()
}

// MapList executes the mapList method.
func (s *State) MapList() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.maps))
	for _, m := range s.maps {
		out = append(out, map[string]any{"key": m.Key, "name": m.Name})
	}
	return out
}

// DeleteMap executes the deleteMap method.
func (s *State) DeleteMap(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.maps {
		if m.Key == key {
			s.maps = append(s.maps[:i], s.maps[i+1:]...)
			if s.currentMap == key {
				s.currentMap = ""
				if len(s.maps) > 0 {
					s.currentMap = s.maps[0].Key
				}
			}
			return nil
		}
	}
	return fmt.Errorf("no map with key %q", key)
}

// CurrentMapKey executes the currentMapKey method.
func (s *State) CurrentMapKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentMap
}

// SetCurrentMap executes the setCurrentMap method.
func (s *State) SetCurrentMap(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.maps {
		if m.Key == key {
			s.currentMap = key
			return nil
		}
	}
	return fmt.Errorf("no map with key %q", key)
}

// RenameMap executes the renameMap method.
func (s *State) RenameMap(key string, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.maps {
		if m.Key == key {
			m.Name = name
			return nil
		}
	}
	return fmt.Errorf("no map with key %q", key)
}

// MapGrid returns the current occupancy grid, row-major. The grid is a fixed
// synthetic room with free space inside a wall of obstacles.
func (s *State) MapGrid() map[string]any {
	const size = 16
	grid := make([]int, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			cell := 1
			if y == 0 || x == 0 || y == size-1 || x == size-1 {
				cell = 2
			}
			grid[y*size+x] = cell
		}
	}
	return map[string]any{
		"grid":          grid,
		"height":        size,
		"width":         size,
		"isValid":       true,
		"metersPerCell": 0.05,
		"originX":       0.0,
		"originY":       0.0,
	}
}

// SlamDiagnostics executes the slamDiagnostics method.
func (s *State) SlamDiagnostics() map[string]any {
	return map[string]any{
		"message": fmt.Sprintf("runMode=%s streaming=%t", s.slam.Mode(), s.slam.Streaming()),
	}
}

// SlamStatus executes the slamStatus method.
func (s *State) SlamStatus() map[string]any {
	return map[string]any{
		"sensorStatus": "Ready",
		"runMode":      string(s.slam.Mode()),
		"status":       s.slam.StatusBits(),
	}
}

// SetHazardDisabled executes the setHazardDisabled method.
func (s *State) SetHazardDisabled(sensorName string, disabled bool) {
	s.mu.Lock()
	s.hazardsDisabled[sensorName] = disabled
	s.mu.Unlock()
}

// HazardSettings executes the hazardSettings method.
func (s *State) HazardSettings() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	bumpSensors := []map[string]any{}
	for _, name := range []string{"Bump_FrontRight", "Bump_FrontLeft", "Bump_RearRight", "Bump_RearLeft"} {
		bumpSensors = append(bumpSensors, map[string]any{
			"sensorName": name,
			"enabled":    !s.hazardsDisabled[name],
		})
	}
	tofSensors := []map[string]any{}
	for _, name := range []string{"TOF_Right", "TOF_Center", "TOF_Left", "TOF_Back"} {
		threshold := 0.215
		if s.hazardsDisabled[name] {
			threshold = 0
		}
		tofSensors = append(tofSensors, map[string]any{
			"sensorName": name,
			"threshold":  threshold,
		})
	}
	return map[string]any{
		"bumpSensors":         bumpSensors,
		"timeOfFlightSensors": tofSensors,
	}
}

// SetIrSettings executes the setIrSettings method.
func (s *State) SetIrSettings(exposure float64, gain int) {
	s.mu.Lock()
	s.irExposure = exposure
	s.irGain = gain
	s.mu.Unlock()
}

// IrSettings executes the irSettings method.
func (s *State) IrSettings() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{"exposure": s.irExposure, "gain": s.irGain}
}

// SetVisibleSettings executes the setVisibleSettings method.
func (s *State) SetVisibleSettings(exposure float64, gain int) {
	s.mu.Lock()
	s.visibleExposure = exposure
	s.visibleGain = gain
	s.mu.Unlock()
}

// VisibleSettings executes the visibleSettings method.
func (s *State) VisibleSettings() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{"exposure": s.visibleExposure, "gain": s.visibleGain}
}

// imuReading synthesizes an IMU sample. Yaw drifts with uptime so consecutive
// events differ.
func (s *State) imuReading(now time.Time) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	elapsed := now.Sub(s.startedAt).Seconds()
	yaw := s.headYaw
	if s.driving {
		yaw = math.Mod(yaw+elapsed*s.angularVelocity, 360)
	}
	return map[string]any{
		"pitch":         s.headPitch,
		"roll":          s.headRoll,
		"yaw":           yaw,
		"xAcceleration": 0.0,
		"yAcceleration": 0.0,
		"zAcceleration": 9.8,
		"pitchVelocity": 0.0,
		"rollVelocity":  0.0,
		"yawVelocity":   s.angularVelocity,
	}
}

func (s *State) actuatorReading() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"actuatorId": "HeadYaw",
		"value":      s.headYaw,
	}
}

