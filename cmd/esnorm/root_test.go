package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleJSON = `{"output":"{\"entry_summary\":{\"entry_number\":\"KX-0711086-1\",\"line_items\":[{\"line_number\":\"001\",\"primary_hts\":{\"hts_code\":\"6910.10.0030\",\"rate\":\"FREE\",\"entered_value\":\"1000\"}}]}}"}`

func writeSample(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "entry.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestColumnsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"columns"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("columns: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 80 {
		t.Fatalf("want 80 columns got %d", len(lines))
	}
}

func TestInspectCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"inspect", writeSample(t)})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	var report struct {
		Shape struct {
			Shape    string   `json:"shape"`
			Wrappers []string `json:"wrappers"`
		} `json:"shape"`
		Expand struct {
			Rows int `json:"rows"`
		} `json:"expand"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if report.Shape.Shape != "canonical" || len(report.Shape.Wrappers) != 1 || report.Expand.Rows != 1 {
		t.Fatalf("unexpected report: %s", out.String())
	}
}

func TestConvertCommand(t *testing.T) {
	outDir := t.TempDir()
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"convert", writeSample(t), "--data-dir", t.TempDir(), "-o", outDir, "--json", "--log-level", "error"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("convert: %v", err)
	}

	xlsx, _ := filepath.Glob(filepath.Join(outDir, "entry_*.xlsx"))
	rows, _ := filepath.Glob(filepath.Join(outDir, "entry_*.json"))
	if len(xlsx) != 1 || len(rows) != 1 {
		t.Fatalf("want one xlsx and one json, got %v %v", xlsx, rows)
	}
}

func TestExtractCommand_NeedsInput(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extract", "--data-dir", t.TempDir()})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("extract without inputs should fail")
	}
}
