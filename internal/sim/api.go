package sim

import (
	"encoding/base64"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter executes the newRouter function.
func NewRouter(state *State, pubsub *PubsubHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/pubsub", func(c *gin.Context) {
		pubsub.Handle(c.Writer, c.Request)
	})

	api := router.Group("/api")

	api.GET("/device", func(c *gin.Context) {
		ok(c, state.DeviceInfo())
	})
	api.GET("/battery", func(c *gin.Context) {
		ok(c, state.Battery())
	})
	api.GET("/help", func(c *gin.Context) {
		command := c.Query("command")
		if command == "" {
			ok(c, "Simulated robot API. Pass ?command= for detail on one endpoint.")
			return
		}
		ok(c, "Simulated endpoint "+command)
	})
	api.POST("/audio/volume", func(c *gin.Context) {
		var body struct {
			Volume int `json:"Volume"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.SetVolume(body.Volume); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})

	api.GET("/logs/level", func(c *gin.Context) {
		ok(c, state.LogLevel())
	})
	api.POST("/logs/level", func(c *gin.Context) {
		var body struct {
			LogLevel string `json:"LogLevel"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.SetLogLevel(body.LogLevel); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})

	mountMovement(api, state)
	mountAssets(api, state)
	mountSkills(api, state)
	mountSlam(api, state)

	return router
}

func mountMovement(api *gin.RouterGroup, state *State) {
	type driveBody struct {
		LinearVelocity  float64 `json:"LinearVelocity"`
		AngularVelocity float64 `json:"AngularVelocity"`
		TimeMS          float64 `json:"TimeMS"`
		LeftTrackSpeed  float64 `json:"LeftTrackSpeed"`
		RightTrackSpeed float64 `json:"RightTrackSpeed"`
	}

	api.POST("/drive", func(c *gin.Context) {
		var body driveBody
		if !bindBody(c, &body) {
			return
		}
		state.SetDrive(body.LinearVelocity, body.AngularVelocity)
		ok(c, nil)
	})
	api.POST("/drive/time", func(c *gin.Context) {
		var body driveBody
		if !bindBody(c, &body) {
			return
		}
		state.SetDrive(body.LinearVelocity, body.AngularVelocity)
		time.AfterFunc(time.Duration(body.TimeMS)*time.Millisecond, state.StopDrive)
		ok(c, nil)
	})
	api.POST("/drive/track", func(c *gin.Context) {
		var body driveBody
		if !bindBody(c, &body) {
			return
		}
		state.SetDrive((body.LeftTrackSpeed+body.RightTrackSpeed)/2, body.RightTrackSpeed-body.LeftTrackSpeed)
		ok(c, nil)
	})
	api.POST("/drive/stop", func(c *gin.Context) {
		state.StopDrive()
		ok(c, nil)
	})
	api.POST("/halt", func(c *gin.Context) {
		state.StopDrive()
		ok(c, nil)
	})

	api.POST("/head", func(c *gin.Context) {
		var body struct {
			Pitch float64 `json:"Pitch"`
			Roll  float64 `json:"Roll"`
			Yaw   float64 `json:"Yaw"`
		}
		if !bindBody(c, &body) {
			return
		}
		state.SetHead(body.Pitch, body.Roll, body.Yaw)
		ok(c, nil)
	})
	api.POST("/arms", func(c *gin.Context) {
		var body struct {
			Arm      string  `json:"Arm"`
			Position float64 `json:"Position"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.SetArm(body.Arm, body.Position); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.POST("/arms/set", func(c *gin.Context) {
		var body struct {
			LeftArmPosition  float64 `json:"LeftArmPosition"`
			RightArmPosition float64 `json:"RightArmPosition"`
		}
		if !bindBody(c, &body) {
			return
		}
		state.SetArms(body.LeftArmPosition, body.RightArmPosition)
		ok(c, nil)
	})
}

func mountAssets(api *gin.RouterGroup, state *State) {
	api.GET("/audio/list", func(c *gin.Context) {
		ok(c, state.AudioList())
	})
	api.POST("/audio", func(c *gin.Context) {
		var body struct {
			FileName          string `json:"FileName"`
			Data              string `json:"Data"`
			OverwriteExisting bool   `json:"OverwriteExisting"`
		}
		if !bindBody(c, &body) {
			return
		}
		data, err := base64.StdEncoding.DecodeString(body.Data)
		if err != nil {
			fail(c, "Data is not valid base64")
			return
		}
		if err := state.SaveAudio(body.FileName, data, body.OverwriteExisting); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.POST("/audio/play", func(c *gin.Context) {
		var body struct {
			FileName string `json:"FileName"`
		}
		if !bindBody(c, &body) {
			return
		}
		if !state.HasAudio(body.FileName) {
			fail(c, "no audio file named "+body.FileName)
			return
		}
		ok(c, nil)
	})
	api.DELETE("/audio", func(c *gin.Context) {
		var body struct {
			FileName string `json:"FileName"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.DeleteAudio(body.FileName); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.GET("/images/list", func(c *gin.Context) {
		ok(c, state.ImageList())
	})
	api.DELETE("/images", func(c *gin.Context) {
		var body struct {
			FileName string `json:"FileName"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.DeleteImage(body.FileName); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
}

func mountSkills(api *gin.RouterGroup, state *State) {
	api.GET("/skills", func(c *gin.Context) {
		ok(c, state.Skills(false))
	})
	api.GET("/skills/running", func(c *gin.Context) {
		ok(c, state.Skills(true))
	})
	api.POST("/skills", func(c *gin.Context) {
		file, header, err := c.Request.FormFile("File")
		if err != nil {
			fail(c, "File part is required")
			return
		}
		defer file.Close()
		archive, err := io.ReadAll(file)
		if err != nil {
			fail(c, "read upload: "+err.Error())
			return
		}
		overwrite := c.Request.FormValue("OverwriteExisting") == "true"
		if err := state.SaveSkill(header.Filename, archive, overwrite); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.POST("/skills/start", func(c *gin.Context) {
		var body struct {
			Skill string `json:"Skill"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.RunSkill(body.Skill); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.POST("/skills/cancel", func(c *gin.Context) {
		var body struct {
			Skill string `json:"Skill"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.CancelSkill(body.Skill); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.POST("/skills/load", func(c *gin.Context) {
		var body struct {
			Skill string `json:"Skill"`
		}
		if !bindBody(c, &body) {
			return
		}
		ok(c, nil)
	})
	api.POST("/skills/reload", func(c *gin.Context) {
		ok(c, nil)
	})
	api.DELETE("/skills", func(c *gin.Context) {
		name := c.Query("Skill")
		if name == "" {
			fail(c, "Skill query parameter is required")
			return
		}
		if err := state.DeleteSkill(name); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
}

func mountSlam(api *gin.RouterGroup, state *State) {
	api.POST("/slam/map/start", func(c *gin.Context) {
		state.StartMapping()
		ok(c, nil)
	})
	api.POST("/slam/map/stop", func(c *gin.Context) {
		record := state.StopMapping()
		if record == nil {
			fail(c, "mapping is not running")
			return
		}
		ok(c, gin.H{"key": record.Key, "name": record.Name})
	})
	api.GET("/slam/map", func(c *gin.Context) {
		ok(c, state.MapGrid())
	})
	api.GET("/slam/map/ids", func(c *gin.Context) {
		ok(c, state.MapList())
	})
	api.GET("/slam/map/current", func(c *gin.Context) {
		ok(c, state.CurrentMapKey())
	})
	api.POST("/slam/map/current", func(c *gin.Context) {
		var body struct {
			Key string `json:"Key"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.SetCurrentMap(body.Key); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.DELETE("/slam/map", func(c *gin.Context) {
		var body struct {
			Key string `json:"Key"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.DeleteMap(body.Key); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.POST("/slam/map/rename", func(c *gin.Context) {
		var body struct {
			Key  string `json:"Key"`
			Name string `json:"Name"`
		}
		if !bindBody(c, &body) {
			return
		}
		if err := state.RenameMap(body.Key, body.Name); err != nil {
			fail(c, err.Error())
			return
		}
		ok(c, nil)
	})
	api.POST("/slam/track/start", func(c *gin.Context) {
		state.SetTracking(true)
		ok(c, nil)
	})
	api.POST("/slam/track/stop", func(c *gin.Context) {
		state.SetTracking(false)
		ok(c, nil)
	})
	api.POST("/slam/streaming/start", func(c *gin.Context) {
		state.SetStreaming(true)
		ok(c, nil)
	})
	api.POST("/slam/streaming/stop", func(c *gin.Context) {
		state.SetStreaming(false)
		ok(c, nil)
	})
	api.POST("/slam/reset", func(c *gin.Context) {
		state.ResetSlam()
		ok(c, nil)
	})
	api.GET("/slam/diagnostics", func(c *gin.Context) {
		ok(c, state.SlamDiagnostics())
	})
	api.GET("/slam/settings/ir", func(c *gin.Context) {
		ok(c, state.IrSettings())
	})
	api.POST("/slam/settings/ir", func(c *gin.Context) {
		var body struct {
			Exposure float64 `json:"Exposure"`
			Gain     int     `json:"Gain"`
		}
		if !bindBody(c, &body) {
			return
		}
		state.SetIrSettings(body.Exposure, body.Gain)
		ok(c, nil)
	})
	api.GET("/slam/settings/visible", func(c *gin.Context) {
		ok(c, state.VisibleSettings())
	})
	api.POST("/slam/settings/visible", func(c *gin.Context) {
		var body struct {
			Exposure float64 `json:"Exposure"`
			Gain     int     `json:"Gain"`
		}
		if !bindBody(c, &body) {
			return
		}
		state.SetVisibleSettings(body.Exposure, body.Gain)
		ok(c, nil)
	})
	api.POST("/drive/coordinates", func(c *gin.Context) {
		var body struct {
			Destination string `json:"Destination"`
		}
		if !bindBody(c, &body) {
			return
		}
		if body.Destination == "" {
			fail(c, "Destination is required")
			return
		}
		ok(c, nil)
	})
	api.POST("/drive/path", func(c *gin.Context) {
		var body struct {
			Path string `json:"Path"`
		}
		if !bindBody(c, &body) {
			return
		}
		if body.Path == "" {
			fail(c, "Path is required")
			return
		}
		ok(c, nil)
	})
	api.GET("/hazards/settings", func(c *gin.Context) {
		ok(c, state.HazardSettings())
	})
	api.POST("/hazard/updatebasesettings", func(c *gin.Context) {
		var body struct {
			BumpSensorsEnabled []struct {
				SensorName string `json:"sensorName"`
				Enabled    bool   `json:"enabled"`
			} `json:"bumpSensorsEnabled"`
			TimeOfFlightThresholds []struct {
				SensorName string  `json:"sensorName"`
				Threshold  float64 `json:"threshold"`
			} `json:"timeOfFlightThresholds"`
		}
		if !bindBody(c, &body) {
			return
		}
		for _, sensor := range body.BumpSensorsEnabled {
			state.SetHazardDisabled(sensor.SensorName, !sensor.Enabled)
		}
		for _, sensor := range body.TimeOfFlightThresholds {
			state.SetHazardDisabled(sensor.SensorName, sensor.Threshold == 0)
		}
		ok(c, nil)
	})
	api.GET("/cameras/depth", func(c *gin.Context) {
		const height, width = 4, 4
		image := make([]*float64, height*width)
		for i := range image {
			d := 0.5 + float64(i)*0.01
			image[i] = &d
		}
		ok(c, gin.H{"height": height, "width": width, "image": image})
	})
	api.GET("/cameras/fisheye", func(c *gin.Context) {
		// A 1x1 black JPEG would do; any opaque bytes satisfy the contract.
		payload := base64.StdEncoding.EncodeToString([]byte("simulated-fisheye-frame"))
		ok(c, gin.H{"base64": payload, "contentType": "image/jpeg"})
	})
}

func ok(c *gin.Context, result any) {
	c.JSON(http.StatusOK, gin.H{"status": "Success", "result": result})
}

func fail(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"status": "Failed", "error": message})
}

func bindBody(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		fail(c, "invalid json body")
		return false
	}
	return true
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		if logger == nil {
			return
		}
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", latency),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}
