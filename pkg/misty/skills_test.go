package misty

import (
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestNewSkillMeta(t *testing.T) {
	meta := NewSkillMeta("light-show")
	if meta.Name != "light-show" {
		t.Fatalf("name=%q, want light-show", meta.Name)
	}
	if _, err := uuid.Parse(meta.UniqueID); err != nil {
		t.Fatalf("unique id %q is not a uuid: %v", meta.UniqueID, err)
	}
	if meta.Language != "javascript" || meta.TimeoutInSeconds != 300 {
		t.Fatalf("meta=%+v, want javascript defaults", meta)
	}

	other := NewSkillMeta("light-show")
	if other.UniqueID == meta.UniqueID {
		t.Fatal("two metas share a unique id")
	}
}

func TestRunSkillSerialization(t *testing.T) {
	rec := &apiRecorder{}
	robot := newTestRobot(t, rec.handler(t))

	if err := robot.RunSkill(testCtx(t), "abc-123", ""); err != nil {
		t.Fatalf("RunSkill error: %v", err)
	}
	call := rec.last(t)
	if call.Path != "skills/start" || call.Body["Skill"] != "abc-123" {
		t.Fatalf("call=%v, want skills/start with Skill=abc-123", call)
	}
	if _, ok := call.Body["Method"]; ok {
		t.Fatal("Method sent although empty")
	}

	if err := robot.RunSkill(testCtx(t), "abc-123", "OnStart"); err != nil {
		t.Fatalf("RunSkill error: %v", err)
	}
	if call := rec.last(t); call.Body["Method"] != "OnStart" {
		t.Fatalf("Method=%v, want OnStart", call.Body["Method"])
	}

	if err := robot.RunSkill(testCtx(t), "", ""); err == nil {
		t.Fatal("empty skill id accepted, want error")
	}
}

func TestCancelSkillAllowsEmptyID(t *testing.T) {
	rec := &apiRecorder{}
	robot := newTestRobot(t, rec.handler(t))

	if err := robot.CancelSkill(testCtx(t), ""); err != nil {
		t.Fatalf("CancelSkill error: %v", err)
	}
	call := rec.last(t)
	if call.Path != "skills/cancel" {
		t.Fatalf("path=%q, want skills/cancel", call.Path)
	}
	if _, ok := call.Body["Skill"]; ok {
		t.Fatal("Skill sent although empty, want cancel-all request")
	}
}

func TestDeleteSkillQuery(t *testing.T) {
	var gotPath, gotQuery string
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("Skill")
		io.WriteString(w, `{"status":"Success"}`)
	})

	if err := robot.DeleteSkill(testCtx(t), "id with spaces"); err != nil {
		t.Fatalf("DeleteSkill error: %v", err)
	}
	if gotPath != "skills" {
		t.Fatalf("path=%q, want skills", gotPath)
	}
	if gotQuery != "id with spaces" {
		t.Fatalf("Skill=%q, want the raw id round-tripped", gotQuery)
	}
}

func TestSaveSkillUpload(t *testing.T) {
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("ImmediatelyApply"); got != "true" {
			t.Errorf("ImmediatelyApply=%q, want true", got)
		}
		if got := r.FormValue("OverwriteExisting"); got != "false" {
			t.Errorf("OverwriteExisting=%q, want false", got)
		}
		file, _, err := r.FormFile("File")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			defer file.Close()
			data, _ := io.ReadAll(file)
			if string(data) != "zipbytes" {
				t.Errorf("file=%q, want zipbytes", data)
			}
		}
		io.WriteString(w, `{"status":"Success"}`)
	})

	err := robot.SaveSkill(testCtx(t), []byte("zipbytes"), SaveSkillOptions{ImmediatelyApply: true})
	if err != nil {
		t.Fatalf("SaveSkill error: %v", err)
	}

	if err := robot.SaveSkill(testCtx(t), nil, SaveSkillOptions{}); err == nil {
		t.Fatal("empty archive accepted, want error")
	}
}

func TestGetSkillsDecoding(t *testing.T) {
	robot := newTestRobot(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"Success","result":[
			{"name":"light-show","description":"blink","uniqueId":"u-1","startupArguments":{"speed":2}}
		]}`)
	})

	skills, err := robot.GetSkills(testCtx(t))
	if err != nil {
		t.Fatalf("GetSkills error: %v", err)
	}
	if len(skills) != 1 || skills[0].UniqueID != "u-1" {
		t.Fatalf("skills=%+v, want one skill u-1", skills)
	}
	if skills[0].StartupArguments["speed"] != 2.0 {
		t.Fatalf("startup args=%v, want speed=2", skills[0].StartupArguments)
	}
}
