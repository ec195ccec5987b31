package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

func TestBaselineCommands(t *testing.T) {
	ta := newTestApp(t, defaultDeps())
	file := filepath.Join(ta.homeDir, "custom", "base.json")

	if code := ta.exec(t, "baseline", "diff", "--baseline-file", file); code != exitUsage {
		t.Errorf("diff without baseline exit = %d, want %d", code, exitUsage)
	}
	if code := ta.exec(t, "baseline", "show", "--baseline-file", file); code != exitUsage {
		t.Errorf("show without baseline exit = %d, want %d", code, exitUsage)
	}

	if code := ta.exec(t, "baseline", "save", "--baseline-file", file); code != exitOK {
		t.Fatalf("save exit = %d, stderr: %s", code, ta.stderr)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("baseline not written: %v", err)
	}

	if code := ta.exec(t, "baseline", "show", "--baseline-file", file); code != exitOK {
		t.Fatalf("show exit = %d, stderr: %s", code, ta.stderr)
	}
	out := ta.stdout.String()
	for _, want := range []string{"Findings:  2", "HIGH  app:com.example.evil:codesign_fail", "test-mac"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q\n%s", want, out)
		}
	}
	if strings.Index(out, "HIGH") > strings.Index(out, "LOW") {
		t.Error("show should list the most severe entries first")
	}

	if code := ta.exec(t, "baseline", "diff", "--baseline-file", file, "--json", "--verbose"); code != exitOK {
		t.Fatalf("diff exit = %d, stderr: %s", code, ta.stderr)
	}
	if got := findingCount(t, ta.stdout.Bytes()); got != 0 {
		t.Errorf("diff reported %d findings, want 0", got)
	}
}

func TestHistoryCommand(t *testing.T) {
	ta := newTestApp(t, defaultDeps())

	if code := ta.exec(t, "history"); code != exitUsage {
		t.Errorf("history without history_db exit = %d, want %d", code, exitUsage)
	}

	cfgPath := filepath.Join(ta.homeDir, ".trustscan.yaml")
	if err := os.WriteFile(cfgPath, []byte("history_db: ~/state/history.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if code := ta.exec(t, "scan"); code != exitOK {
		t.Fatalf("scan exit = %d, stderr: %s", code, ta.stderr)
	}
	if !strings.Contains(ta.stderr.String(), "History: 2 new, 0 reopened, 0 resolved") {
		t.Errorf("stderr = %s", ta.stderr)
	}

	if code := ta.exec(t, "history", "--state", "open"); code != exitOK {
		t.Fatalf("history exit = %d, stderr: %s", code, ta.stderr)
	}
	out := ta.stdout.String()
	if !strings.Contains(out, "app:com.example.evil:codesign_fail") || !strings.Contains(out, "OPEN") {
		t.Errorf("history output = %s", out)
	}

	if code := ta.exec(t, "history", "--state", "resolved"); code != exitOK {
		t.Fatalf("history exit = %d", code)
	}
	if !strings.Contains(ta.stdout.String(), "No history recorded") {
		t.Errorf("resolved output = %s", ta.stdout)
	}

	if code := ta.exec(t, "history", "--state", "closed"); code != exitUsage {
		t.Errorf("bad state exit = %d, want %d", code, exitUsage)
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in      string
		want    entities.FindingState
		wantErr bool
	}{
		{"", "", false},
		{"all", "", false},
		{"OPEN", entities.StateOpen, false},
		{" resolved ", entities.StateResolved, false},
		{"closed", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseState(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseState() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigCommands(t *testing.T) {
	ta := newTestApp(t, defaultDeps())

	if code := ta.exec(t, "config", "init"); code != exitOK {
		t.Fatalf("init exit = %d, stderr: %s", code, ta.stderr)
	}
	path := filepath.Join(ta.homeDir, ".trustscan.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "min_risk: MED") {
		t.Errorf("unexpected config content:\n%s", data)
	}

	if code := ta.exec(t, "config", "init"); code != exitUsage {
		t.Errorf("second init exit = %d, want %d", code, exitUsage)
	}

	// the generated example must load cleanly
	if code := ta.exec(t, "scan", "--json"); code != exitOK {
		t.Errorf("scan with generated config exit = %d, stderr: %s", code, ta.stderr)
	}

	custom := filepath.Join(ta.homeDir, "nested", "cfg.yaml")
	if code := ta.exec(t, "config", "init", custom); code != exitOK {
		t.Errorf("init with path exit = %d", code)
	}

	if code := ta.exec(t, "config", "paths"); code != exitOK {
		t.Fatalf("paths exit = %d", code)
	}
	if lines := strings.Split(strings.TrimSpace(ta.stdout.String()), "\n"); len(lines) != 4 || lines[0] != path {
		t.Errorf("paths = %q", lines)
	}
}

func TestVersionCommand(t *testing.T) {
	ta := newTestApp(t, defaultDeps())
	if code := ta.exec(t, "version"); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(ta.stdout.String(), "trustscan dev (commit none") {
		t.Errorf("version output = %q", ta.stdout)
	}
}
