package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveTool(t *testing.T) {
	if got := ResolveTool("sh", ""); got == "" {
		t.Error("expected sh to resolve from PATH")
	}
	if got := ResolveTool("definitely-not-a-tool-xyz", ""); got != "" {
		t.Errorf("expected empty result for missing tool, got %q", got)
	}
}

func TestResolveToolCustomPath(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "mytool")
	if err := os.WriteFile(custom, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if got := ResolveTool("mytool", custom); got != custom {
		t.Errorf("expected custom path %q, got %q", custom, got)
	}
	if got := ResolveTool("mytool", filepath.Join(dir, "absent")); got != "" {
		t.Errorf("expected empty result for missing custom path, got %q", got)
	}
}

func TestCheckTools(t *testing.T) {
	missing := CheckTools("sh", "definitely-not-a-tool-xyz")
	if len(missing) != 1 || missing[0] != "definitely-not-a-tool-xyz" {
		t.Errorf("unexpected missing tools: %v", missing)
	}
	if missing := CheckTools(); missing != nil {
		t.Errorf("expected no missing tools, got %v", missing)
	}
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()

	script := filepath.Join(dir, "setup.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := CheckScript(script); err != nil {
		t.Errorf("regular file rejected: %v", err)
	}
	if err := CheckScript(filepath.Join(dir, "absent.sh")); err == nil {
		t.Error("expected error for missing script")
	}
	if err := CheckScript(dir); err == nil {
		t.Error("expected error for directory")
	}
}
