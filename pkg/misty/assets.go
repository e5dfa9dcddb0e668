package misty

import (
	"context"
	"encoding/base64"
	"os"
)

// AudioFile describes one audio asset on the robot.
type AudioFile struct {
	Name        string `json:"name"`
	SystemAsset bool   `json:"systemAsset"`
}

// ImageFile describes one image asset on the robot.
type ImageFile struct {
	Name        string `json:"name"`
	Height      int    `json:"height"`
	Width       int    `json:"width"`
	SystemAsset bool   `json:"systemAsset"`
}

// SaveAudioOptions control audio upload behavior.
type SaveAudioOptions struct {
	// ImmediatelyApply plays the file right after saving it.
	ImmediatelyApply bool
	// OverwriteExisting replaces a file of the same name.
	OverwriteExisting bool
}

// GetAudioList lists the audio assets saved on the robot.
func (r *Robot) GetAudioList(ctx context.Context) ([]AudioFile, error) {
	var files []AudioFile
	err := r.rest.GetJSON(ctx, "audio/list", nil, &files)
	return files, err
}

// SaveAudio uploads audio data under fileName. Valid formats are .wav,
// .mp3, .wma and .aac; the payload travels base64-encoded.
func (r *Robot) SaveAudio(ctx context.Context, fileName string, data []byte, opts SaveAudioOptions) error {
	if fileName == "" {
		return validationErrorf("file name", "must not be empty")
	}
	if len(data) == 0 {
		return validationErrorf("data", "must not be empty")
	}
	_, err := r.rest.Post(ctx, "audio", map[string]any{
		"FileName":          fileName,
		"Data":              base64.StdEncoding.EncodeToString(data),
		"ImmediatelyApply":  opts.ImmediatelyApply,
		"OverwriteExisting": opts.OverwriteExisting,
	})
	return err
}

// SaveAudioFile uploads the audio file at path under fileName.
func (r *Robot) SaveAudioFile(ctx context.Context, fileName string, path string, opts SaveAudioOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.SaveAudio(ctx, fileName, data, opts)
}

// PlayAudio plays a previously saved audio file. A volume of 0 keeps the
// robot's current default volume; otherwise volume must be in [1, 100].
func (r *Robot) PlayAudio(ctx context.Context, fileName string, volume int) error {
	if fileName == "" {
		return validationErrorf("file name", "must not be empty")
	}
	params := map[string]any{"FileName": fileName}
	if volume != 0 {
		if volume < 1 || volume > 100 {
			return validationErrorf("volume", "must be between 1 and 100, got %d", volume)
		}
		params["Volume"] = volume
	}
	_, err := r.rest.Post(ctx, "audio/play", params)
	return err
}

// DeleteAudio deletes a previously uploaded audio file. System assets
// cannot be deleted.
func (r *Robot) DeleteAudio(ctx context.Context, fileName string) error {
	if fileName == "" {
		return validationErrorf("file name", "must not be empty")
	}
	return r.rest.Delete(ctx, "audio", map[string]any{"FileName": fileName})
}

// GetImageList lists the image assets saved on the robot.
func (r *Robot) GetImageList(ctx context.Context) ([]ImageFile, error) {
	var files []ImageFile
	err := r.rest.GetJSON(ctx, "images/list", nil, &files)
	return files, err
}

// DeleteImage deletes a previously uploaded image file.
func (r *Robot) DeleteImage(ctx context.Context, fileName string) error {
	if fileName == "" {
		return validationErrorf("file name", "must not be empty")
	}
	return r.rest.Delete(ctx, "images", map[string]any{"FileName": fileName})
}
