package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/archanaanairr/vb6/internal/convert"
	"github.com/archanaanairr/vb6/internal/project"
)

const modelClassText = `Attribute VB_Name = "clsConfig"
Public Property Get Name() As String
End Property
Public Property Get Version() As Long
End Property
Public Sub Reset()
End Sub`

type zipEntry struct {
	name, body string
}

func zipPayload(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func postConvert(t *testing.T, srv *Server, target, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest("POST", target, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decodeStatusHeader(t *testing.T, w *httptest.ResponseRecorder) conversionStatus {
	t.Helper()
	raw := w.Header().Get("X-Conversion-Status")
	if raw == "" {
		t.Fatal("missing X-Conversion-Status header")
	}
	var status conversionStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		t.Fatalf("decode status header: %v", err)
	}
	return status
}

func zipNames(t *testing.T, data []byte) map[string]bool {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open result archive: %v", err)
	}
	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	return names
}

func zipFileText(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open result archive: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		defer rc.Close()
		text, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(text)
	}
	t.Fatalf("missing archive entry %s", name)
	return ""
}

func TestConvertUpload_Success(t *testing.T) {
	srv := newTestServer("", nil)
	payload := zipPayload(t, []zipEntry{
		{"modMain.bas", "Public Sub Main()\nEnd Sub"},
		{"clsConfig.cls", modelClassText},
	})

	w := postConvert(t, srv, "/convert?namespace=Legacy.Pump", "VBProj.zip", payload)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("expected application/zip, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "VBProj_converted.zip") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}

	status := decodeStatusHeader(t, w)
	if status.Status != "completed" {
		t.Errorf("status = %q", status.Status)
	}
	if status.ProjectName != "VBProj" {
		t.Errorf("project name = %q", status.ProjectName)
	}
	if _, err := uuid.Parse(status.JobID); err != nil {
		t.Errorf("job id %q is not a uuid: %v", status.JobID, err)
	}
	if len(status.SuccessfulFiles) != 2 || len(status.FailedFiles) != 0 {
		t.Errorf("summary = %d ok / %d failed, want 2 / 0", len(status.SuccessfulFiles), len(status.FailedFiles))
	}
	if status.TotalFiles != 2 || status.Summary.Successful != 2 {
		t.Errorf("counts = %d total / %d successful", status.TotalFiles, status.Summary.Successful)
	}
	if status.Warning != "" {
		t.Errorf("unexpected warning %q", status.Warning)
	}

	names := zipNames(t, w.Body.Bytes())
	for _, want := range []string{
		"VBProj/VBProj.csproj",
		"VBProj/Program.cs",
		"VBProj/Worker.cs",
		"VBProj/appsettings.json",
		"VBProj/Services/ModuleService.cs",
		"VBProj/Models/clsConfig.cs",
		"VBProj/Helpers/Constants.cs",
		"VBProj/README.md",
	} {
		if !names[want] {
			t.Errorf("missing archive entry %s", want)
		}
	}
}

func TestConvertUpload_PartialFailure(t *testing.T) {
	fake := &fakeConverter{
		moduleFn: func(convert.Unit) (convert.Result, error) {
			return nil, fmt.Errorf("model refused")
		},
		classFn: okClass,
	}
	builder := project.NewBuilder(fake, discardLogger())
	srv := NewServer(8750, "", builder, nil, nil, nil, nil, nil, discardLogger())

	payload := zipPayload(t, []zipEntry{
		{"modBad.bas", "Public Sub Main()\nEnd Sub"},
		{"clsConfig.cls", modelClassText},
	})
	w := postConvert(t, srv, "/convert", "VBProj.zip", payload)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	status := decodeStatusHeader(t, w)
	if status.Status != "completed" {
		t.Errorf("status = %q", status.Status)
	}
	if len(status.SuccessfulFiles) != 1 || len(status.FailedFiles) != 1 {
		t.Fatalf("summary = %d ok / %d failed, want 1 / 1", len(status.SuccessfulFiles), len(status.FailedFiles))
	}
	if status.FailedFiles[0] != "modBad.bas (conversion failed)" {
		t.Errorf("failed entry = %q", status.FailedFiles[0])
	}
	if !strings.Contains(status.Warning, "modBad.bas") {
		t.Errorf("warning %q should name the failed file", status.Warning)
	}
	if status.Summary.Failed != 1 {
		t.Errorf("summary failed count = %d", status.Summary.Failed)
	}
}

func TestConvertUpload_RejectsMissingFile(t *testing.T) {
	srv := newTestServer("", nil)

	req := httptest.NewRequest("POST", "/convert", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Please upload a ZIP file") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestConvertUpload_RejectsNonZipName(t *testing.T) {
	srv := newTestServer("", nil)

	w := postConvert(t, srv, "/convert", "module.bas", []byte("Public Sub Main()"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Please upload a ZIP file") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestConvertUpload_RejectsBadNamespace(t *testing.T) {
	srv := newTestServer("", nil)
	payload := zipPayload(t, []zipEntry{{"modMain.bas", "Public Sub Main()\nEnd Sub"}})

	w := postConvert(t, srv, "/convert?namespace=bad%20name", "VBProj.zip", payload)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Namespace must be alphanumeric") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestConvertUpload_RejectsEmptyFile(t *testing.T) {
	srv := newTestServer("", nil)

	w := postConvert(t, srv, "/convert", "VBProj.zip", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Uploaded file is empty") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestConvertUpload_RejectsCorruptZip(t *testing.T) {
	srv := newTestServer("", nil)

	w := postConvert(t, srv, "/convert", "VBProj.zip", []byte("not a zip archive"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid ZIP file") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestConvertGitHub_Success(t *testing.T) {
	cloner := &fakeCloner{fn: func(_ context.Context, repoURL, branch, destRoot string) (string, error) {
		repoDir := filepath.Join(destRoot, "legacy-pump")
		if err := os.MkdirAll(filepath.Join(repoDir, "src"), 0o755); err != nil {
			return "", err
		}
		err := os.WriteFile(filepath.Join(repoDir, "src", "modMain.bas"), []byte("Public Sub Main()\nEnd Sub"), 0o644)
		return repoDir, err
	}}
	srv := newTestServer("", cloner)

	body := strings.NewReader(`{"repo_url": "https://github.com/acme/legacy-pump.git"}`)
	req := httptest.NewRequest("POST", "/convert/github", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	status := decodeStatusHeader(t, w)
	if status.ProjectName != "legacy-pump" {
		t.Errorf("project name = %q", status.ProjectName)
	}
	if len(status.SuccessfulFiles) != 1 {
		t.Errorf("successful = %v", status.SuccessfulFiles)
	}

	program := zipFileText(t, w.Body.Bytes(), "legacy-pump/Program.cs")
	if !strings.Contains(program, "ConvertedApp") {
		t.Error("Program.cs should carry the default namespace")
	}
}

func TestConvertGitHub_RequiresRepoURL(t *testing.T) {
	srv := newTestServer("", nil)

	req := httptest.NewRequest("POST", "/convert/github", strings.NewReader(`{"branch": "main"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "repo_url is required") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestConvertGitHub_CloneFailure(t *testing.T) {
	cloner := &fakeCloner{fn: func(context.Context, string, string, string) (string, error) {
		return "", fmt.Errorf("authentication required")
	}}
	srv := newTestServer("", cloner)

	body := strings.NewReader(`{"repo_url": "https://github.com/acme/private.git"}`)
	req := httptest.NewRequest("POST", "/convert/github", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "clone repository") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestUnitsFromSummary(t *testing.T) {
	s := project.Summary{
		ProjectName: "VBProj",
		Successful:  []string{"modMain.bas", "clsConfig.cls"},
		Failed:      []string{"clsPort.cls (conversion failed)"},
	}

	units := unitsFromSummary(s)
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}
	if units[0].FileName != "modMain.bas" || units[0].Kind != "module" || units[0].Status != "converted" {
		t.Errorf("unexpected unit %+v", units[0])
	}
	if units[1].Kind != "class" {
		t.Errorf("expected class kind for %s", units[1].FileName)
	}
	failed := units[2]
	if failed.FileName != "clsPort.cls" || failed.Status != "failed" || failed.Detail != "conversion failed" {
		t.Errorf("unexpected failed unit %+v", failed)
	}
}

func TestSplitFailure(t *testing.T) {
	cases := []struct {
		entry, name, detail string
	}{
		{"modMain.bas (conversion failed)", "modMain.bas", "conversion failed"},
		{"clsPort.cls (empty)", "clsPort.cls", "empty"},
		{"plain.bas", "plain.bas", ""},
	}
	for _, c := range cases {
		name, detail := splitFailure(c.entry)
		if name != c.name || detail != c.detail {
			t.Errorf("splitFailure(%q) = %q, %q", c.entry, name, detail)
		}
	}
}
