package misty

import (
	"context"
	"net/url"
	"os"
	"strconv"

	"github.com/google/uuid"
)

// Skill describes one skill uploaded to the robot, as reported by the
// skills endpoints.
type Skill struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	UniqueID         string         `json:"uniqueId"`
	StartupArguments map[string]any `json:"startupArguments"`
}

// SkillMeta is the JSON meta file packaged alongside a skill's JavaScript
// code in the upload archive.
type SkillMeta struct {
	Name             string   `json:"Name"`
	UniqueID         string   `json:"UniqueId"`
	Description      string   `json:"Description"`
	StartupRules     []string `json:"StartupRules"`
	Language         string   `json:"Language"`
	BroadcastMode    string   `json:"BroadcastMode"`
	TimeoutInSeconds int      `json:"TimeoutInSeconds"`
	CleanupOnCancel  bool     `json:"CleanupOnCancel"`
	WriteToLog       bool     `json:"WriteToLog"`
}

// NewSkillMeta builds a meta file for a new skill with a fresh UniqueId and
// the usual defaults.
func NewSkillMeta(name string) SkillMeta {
	return SkillMeta{
		Name:             name,
		UniqueID:         uuid.NewString(),
		StartupRules:     []string{"Manual"},
		Language:         "javascript",
		BroadcastMode:    "verbose",
		TimeoutInSeconds: 300,
	}
}

// SaveSkillOptions control skill upload behavior.
type SaveSkillOptions struct {
	// ImmediatelyApply runs the skill right after upload instead of just
	// loading it.
	ImmediatelyApply bool
	// OverwriteExisting replaces a skill of the same name.
	OverwriteExisting bool
}

// GetSkills lists the skills currently uploaded to the robot.
func (r *Robot) GetSkills(ctx context.Context) ([]Skill, error) {
	var skills []Skill
	err := r.rest.GetJSON(ctx, "skills", nil, &skills)
	return skills, err
}

// GetRunningSkills lists the skills currently running.
func (r *Robot) GetRunningSkills(ctx context.Context) ([]Skill, error) {
	var skills []Skill
	err := r.rest.GetJSON(ctx, "skills/running", nil, &skills)
	return skills, err
}

// RunSkill starts a previously uploaded skill by its UniqueId. A non-empty
// method restricts the run to that method within the skill.
func (r *Robot) RunSkill(ctx context.Context, skill string, method string) error {
	if skill == "" {
		return validationErrorf("skill", "unique id must not be empty")
	}
	params := map[string]any{"Skill": skill}
	if method != "" {
		params["Method"] = method
	}
	_, err := r.rest.Post(ctx, "skills/start", params)
	return err
}

// CancelSkill stops the skill with the given UniqueId, or every running
// skill when the id is empty.
func (r *Robot) CancelSkill(ctx context.Context, skill string) error {
	params := map[string]any{}
	if skill != "" {
		params["Skill"] = skill
	}
	_, err := r.rest.Post(ctx, "skills/cancel", params)
	return err
}

// LoadSkill makes a previously uploaded skill available to run, picking up
// any edits made since the upload.
func (r *Robot) LoadSkill(ctx context.Context, skill string) error {
	if skill == "" {
		return validationErrorf("skill", "unique id must not be empty")
	}
	_, err := r.rest.Post(ctx, "skills/load", map[string]any{"Skill": skill})
	return err
}

// ReloadSkills reloads every uploaded skill. Returns immediately; loading
// many skills can take a while on the robot's side.
func (r *Robot) ReloadSkills(ctx context.Context) error {
	_, err := r.rest.Post(ctx, "skills/reload", nil)
	return err
}

// DeleteSkill removes the code, meta and asset files for a skill.
func (r *Robot) DeleteSkill(ctx context.Context, skill string) error {
	if skill == "" {
		return validationErrorf("skill", "unique id must not be empty")
	}
	return r.rest.Delete(ctx, "skills?Skill="+url.QueryEscape(skill), nil)
}

// SaveSkill uploads a zipped skill archive (the JS and JSON meta files plus
// any assets) and loads it.
func (r *Robot) SaveSkill(ctx context.Context, archive []byte, opts SaveSkillOptions) error {
	if len(archive) == 0 {
		return validationErrorf("archive", "must not be empty")
	}
	fields := map[string]string{
		"ImmediatelyApply":  strconv.FormatBool(opts.ImmediatelyApply),
		"OverwriteExisting": strconv.FormatBool(opts.OverwriteExisting),
	}
	_, err := r.rest.PostMultipart(ctx, "skills", fields, "File", "skill.zip", archive)
	return err
}

// SaveSkillFile uploads the zip archive at path.
func (r *Robot) SaveSkillFile(ctx context.Context, path string, opts SaveSkillOptions) error {
	archive, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.SaveSkill(ctx, archive, opts)
}
