package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/splatforge/splatforge/internal/runlog"
)

func TestWriteStageChart(t *testing.T) {
	run := &runlog.Run{
		ID:         "3e9d2a1c-0000-4000-8000-000000000000",
		StartedAt:  time.Now().Add(-5 * time.Minute),
		FinishedAt: time.Now(),
		Mode:       "video",
		Input:      "clip.MOV",
		OutputName: "clip",
		Status:     "success",
	}
	stages := []runlog.StageRecord{
		{Stage: "ingest", Status: "ok", DurationMS: 1500},
		{Stage: "feature-detection", Status: "ok", DurationMS: 64000},
		{Stage: "splatting", Status: "ok", DurationMS: 210000},
	}

	var buf bytes.Buffer
	if err := WriteStageChart(&buf, run, stages); err != nil {
		t.Fatalf("WriteStageChart() failed: %v", err)
	}

	html := buf.String()
	for _, want := range []string{"3e9d2a1c", "feature-detection", "splatting"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML should contain %q", want)
		}
	}
}

func TestWriteStageChart_NoStages(t *testing.T) {
	var buf bytes.Buffer
	err := WriteStageChart(&buf, &runlog.Run{ID: "x"}, nil)
	if err == nil {
		t.Error("WriteStageChart() with no stages should error")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("abcdefghijkl"); got != "abcdefgh" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() of short input = %q", got)
	}
}
