package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateAndExtract_RoundTrip(t *testing.T) {
	srcRoot := t.TempDir()
	project := filepath.Join(srcRoot, "MyProject")
	if err := os.MkdirAll(filepath.Join(project, "Services"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "Program.cs"), []byte("var host = Host.Build();"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "Services", "ModuleService.cs"), []byte("public class ModuleService { }"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Create(&buf, project, srcRoot); err != nil {
		t.Fatalf("Create: %v", err)
	}

	zipPath := filepath.Join(t.TempDir(), "out.zip")
	if err := os.WriteFile(zipPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	destRoot := t.TempDir()
	if err := Extract(zipPath, destRoot); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destRoot, "MyProject", "Services", "ModuleService.cs"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(got) != "public class ModuleService { }" {
		t.Errorf("content = %q", got)
	}
}

func TestCreate_EntryNamesRelativeToBase(t *testing.T) {
	srcRoot := t.TempDir()
	project := filepath.Join(srcRoot, "Proj")
	if err := os.MkdirAll(project, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "a.cs"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Create(&buf, project, srcRoot); err != nil {
		t.Fatalf("Create: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.File) != 1 || r.File[0].Name != "Proj/a.cs" {
		names := make([]string, 0, len(r.File))
		for _, f := range r.File {
			names = append(names, f.Name)
		}
		t.Errorf("entries = %v, want [Proj/a.cs]", names)
	}
}

func TestExtract_RejectsEscapingEntry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("../evil.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.Write([]byte("nope")); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	zipPath := filepath.Join(t.TempDir(), "evil.zip")
	if err := os.WriteFile(zipPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	err = Extract(zipPath, t.TempDir())
	if err == nil {
		t.Fatal("expected error for escaping entry")
	}
	if !strings.Contains(err.Error(), "escapes") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExtract_InvalidZip(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte("this is not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Extract(bad, t.TempDir()); err == nil {
		t.Fatal("expected error for invalid zip")
	}
}
