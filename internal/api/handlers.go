package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/archanaanairr/vb6/internal/archive"
	"github.com/archanaanairr/vb6/internal/classify"
	"github.com/archanaanairr/vb6/internal/events"
	"github.com/archanaanairr/vb6/internal/project"
	"github.com/archanaanairr/vb6/internal/store"
)

// conversionStatus is serialized into the X-Conversion-Status header that
// accompanies the result archive.
type conversionStatus struct {
	Status          string           `json:"status"`
	JobID           string           `json:"job_id"`
	ProjectName     string           `json:"project_name"`
	SuccessfulFiles []string         `json:"successful_files"`
	FailedFiles     []string         `json:"failed_files"`
	LargeFiles      []string         `json:"large_files_processed"`
	TotalFiles      int              `json:"total_files_processed"`
	Summary         conversionCounts `json:"conversion_summary"`
	Warning         string           `json:"warning,omitempty"`
	Info            string           `json:"info,omitempty"`
}

type conversionCounts struct {
	TotalFiles int `json:"total_files"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	LargeFiles int `json:"large_files"`
}

type githubConvertRequest struct {
	RepoURL   string `json:"repo_url"`
	Branch    string `json:"branch,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

type jobResponse struct {
	ID          string    `json:"id"`
	ProjectName string    `json:"project_name"`
	Namespace   string    `json:"namespace"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	Successful  int       `json:"successful_files"`
	Failed      int       `json:"failed_files"`
	Large       int       `json:"large_files_processed"`
	Warning     string    `json:"warning,omitempty"`
	ArtifactURL string    `json:"artifact_url,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type unitResponse struct {
	FileName string `json:"file_name"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

type jobDetailResponse struct {
	jobResponse
	Units []unitResponse `json:"units"`
}

// convertUpload handles POST /convert
func (s *Server) convertUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"Please upload a ZIP file"}`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.HasSuffix(strings.ToLower(filename), ".zip") {
		http.Error(w, `{"error":"Please upload a ZIP file"}`, http.StatusBadRequest)
		return
	}

	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		namespace = r.FormValue("namespace")
	}
	if namespace == "" {
		namespace = "ConvertedApp"
	}
	if !classify.ValidNamespace(namespace) {
		http.Error(w, `{"error":"Namespace must be alphanumeric with optional dots and underscores"}`, http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"read upload: %v"}`, err), http.StatusInternalServerError)
		return
	}
	if len(content) == 0 {
		http.Error(w, `{"error":"Uploaded file is empty"}`, http.StatusBadRequest)
		return
	}

	tempDir, err := os.MkdirTemp("", "vb6-convert-")
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"create workspace: %v"}`, err), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tempDir)

	inputDir := filepath.Join(tempDir, "input")
	outputDir := filepath.Join(tempDir, "output")
	for _, dir := range []string{inputDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"create workspace: %v"}`, err), http.StatusInternalServerError)
			return
		}
	}

	zipPath := filepath.Join(tempDir, filename)
	if err := os.WriteFile(zipPath, content, 0o644); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"save upload: %v"}`, err), http.StatusInternalServerError)
		return
	}
	if err := archive.Extract(zipPath, inputDir); err != nil {
		http.Error(w, `{"error":"Invalid ZIP file"}`, http.StatusBadRequest)
		return
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	s.runConversion(w, r, inputDir, outputDir, stem, namespace, "upload")
}

// convertGitHub handles POST /convert/github
func (s *Server) convertGitHub(w http.ResponseWriter, r *http.Request) {
	var req githubConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.RepoURL) == "" {
		http.Error(w, `{"error":"repo_url is required"}`, http.StatusBadRequest)
		return
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = "ConvertedApp"
	}
	if !classify.ValidNamespace(namespace) {
		http.Error(w, `{"error":"Namespace must be alphanumeric with optional dots and underscores"}`, http.StatusBadRequest)
		return
	}

	tempDir, err := os.MkdirTemp("", "vb6-convert-")
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"create workspace: %v"}`, err), http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tempDir)

	inputRoot := filepath.Join(tempDir, "input")
	outputDir := filepath.Join(tempDir, "output")
	for _, dir := range []string{inputRoot, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"create workspace: %v"}`, err), http.StatusInternalServerError)
			return
		}
	}

	repoDir, err := s.cloner.Clone(r.Context(), req.RepoURL, req.Branch, inputRoot)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"clone repository: %v"}`, err), http.StatusBadRequest)
		return
	}

	s.runConversion(w, r, repoDir, outputDir, filepath.Base(repoDir), namespace, "github")
}

// runConversion builds the project, archives it and responds with the zip.
func (s *Server) runConversion(w http.ResponseWriter, r *http.Request, inputDir, outputDir, projectName, namespace, source string) {
	jobID := uuid.New()
	started := time.Now()

	s.logger.Info("conversion started",
		"job_id", jobID,
		"project", projectName,
		"namespace", namespace,
		"source", source,
	)

	summary, err := s.builder.Build(r.Context(), inputDir, outputDir, projectName, namespace)
	if err != nil {
		s.logger.Error("conversion failed", "job_id", jobID, "error", err)
		s.publishFailure(jobID, summary.ProjectName, namespace, source, err)
		http.Error(w, fmt.Sprintf(`{"error":"Conversion failed: %v"}`, err), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	projectRoot := filepath.Join(outputDir, summary.ProjectName)
	if err := archive.Create(&buf, projectRoot, outputDir); err != nil {
		s.logger.Error("archive creation failed", "job_id", jobID, "error", err)
		s.publishFailure(jobID, summary.ProjectName, namespace, source, err)
		http.Error(w, fmt.Sprintf(`{"error":"Error creating output archive: %v"}`, err), http.StatusInternalServerError)
		return
	}

	s.finishConversion(w, r, jobID, summary, source, buf.Bytes(), started)
}

// finishConversion runs the optional side effects and streams the archive.
func (s *Server) finishConversion(w http.ResponseWriter, r *http.Request, jobID uuid.UUID, summary project.Summary, source string, data []byte, started time.Time) {
	duration := time.Since(started)

	artifactURL := ""
	if s.artifacts != nil {
		key, err := s.artifacts.PutArchive(r.Context(), jobID.String(), summary.ProjectName+"_converted.zip", data)
		if err != nil {
			s.logger.Warn("store artifact", "job_id", jobID, "error", err)
		} else if url, err := s.artifacts.PresignedURL(r.Context(), key); err != nil {
			s.logger.Warn("presign artifact", "job_id", jobID, "error", err)
		} else {
			artifactURL = url
		}
	}

	if s.db != nil {
		job := store.JobRecord{
			ID:          jobID,
			ProjectName: summary.ProjectName,
			Namespace:   summary.Namespace,
			Source:      source,
			Status:      "completed",
			Successful:  len(summary.Successful),
			Failed:      len(summary.Failed),
			Large:       len(summary.Large),
			Warning:     summary.Warning(),
			ArtifactURL: artifactURL,
			DurationMS:  duration.Milliseconds(),
		}
		if _, err := s.db.RecordJob(r.Context(), job, unitsFromSummary(summary)); err != nil {
			s.logger.Warn("record job", "job_id", jobID, "error", err)
		}
	}

	if s.events != nil {
		ev := events.JobEvent{
			JobID:       jobID.String(),
			ProjectName: summary.ProjectName,
			Namespace:   summary.Namespace,
			Source:      source,
			Successful:  len(summary.Successful),
			Failed:      len(summary.Failed),
			Large:       len(summary.Large),
			Warning:     summary.Warning(),
			Timestamp:   time.Now().UTC(),
		}
		if err := s.events.PublishJobCompleted(ev); err != nil {
			s.logger.Warn("publish job event", "job_id", jobID, "error", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PostJobSummary(r.Context(), summary, source, duration.Round(time.Second).String()); err != nil {
			s.logger.Warn("post slack summary", "job_id", jobID, "error", err)
		}
	}

	s.logger.Info("conversion completed",
		"job_id", jobID,
		"project", summary.ProjectName,
		"successful", len(summary.Successful),
		"failed", len(summary.Failed),
		"large", len(summary.Large),
		"duration_ms", duration.Milliseconds(),
	)

	status, _ := json.Marshal(newConversionStatus(jobID, summary))
	filename := summary.ProjectName + "_converted.zip"

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Conversion-Status", string(status))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) publishFailure(jobID uuid.UUID, projectName, namespace, source string, cause error) {
	if s.events == nil {
		return
	}
	ev := events.JobEvent{
		JobID:       jobID.String(),
		ProjectName: projectName,
		Namespace:   namespace,
		Source:      source,
		Error:       cause.Error(),
		Timestamp:   time.Now().UTC(),
	}
	if err := s.events.PublishJobFailed(ev); err != nil {
		s.logger.Warn("publish job event", "job_id", jobID, "error", err)
	}
}

// listJobs handles GET /api/v1/jobs
func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	if s.db == nil {
		http.Error(w, `{"error":"job history is not configured"}`, http.StatusServiceUnavailable)
		return
	}

	jobs, err := s.db.RecentJobs(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"list jobs: %v"}`, err), http.StatusInternalServerError)
		return
	}

	out := make([]jobResponse, len(jobs))
	for i, j := range jobs {
		out[i] = toJobResponse(j)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"jobs":  out,
		"count": len(out),
	})
}

// getJob handles GET /api/v1/jobs/{id}
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"invalid job id"}`, http.StatusBadRequest)
		return
	}

	if s.db == nil {
		http.Error(w, `{"error":"job history is not configured"}`, http.StatusServiceUnavailable)
		return
	}

	job, err := s.db.JobByID(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		http.Error(w, `{"error":"job not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"fetch job: %v"}`, err), http.StatusInternalServerError)
		return
	}

	units, err := s.db.UnitsForJob(r.Context(), id)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"fetch units: %v"}`, err), http.StatusInternalServerError)
		return
	}

	resp := jobDetailResponse{jobResponse: toJobResponse(*job)}
	resp.Units = make([]unitResponse, len(units))
	for i, u := range units {
		resp.Units[i] = unitResponse{FileName: u.FileName, Kind: u.Kind, Status: u.Status, Detail: u.Detail}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newConversionStatus(jobID uuid.UUID, s project.Summary) conversionStatus {
	return conversionStatus{
		Status:          "completed",
		JobID:           jobID.String(),
		ProjectName:     s.ProjectName,
		SuccessfulFiles: nonNil(s.Successful),
		FailedFiles:     nonNil(s.Failed),
		LargeFiles:      nonNil(s.Large),
		TotalFiles:      s.Total(),
		Summary: conversionCounts{
			TotalFiles: s.Total(),
			Successful: len(s.Successful),
			Failed:     len(s.Failed),
			LargeFiles: len(s.Large),
		},
		Warning: s.Warning(),
		Info:    s.Info(),
	}
}

func toJobResponse(j store.JobRecord) jobResponse {
	return jobResponse{
		ID:          j.ID.String(),
		ProjectName: j.ProjectName,
		Namespace:   j.Namespace,
		Source:      j.Source,
		Status:      j.Status,
		Successful:  j.Successful,
		Failed:      j.Failed,
		Large:       j.Large,
		Warning:     j.Warning,
		ArtifactURL: j.ArtifactURL,
		DurationMS:  j.DurationMS,
		CreatedAt:   j.CreatedAt,
	}
}

// unitsFromSummary expands a build summary into per-file store records.
func unitsFromSummary(s project.Summary) []store.UnitRecord {
	units := make([]store.UnitRecord, 0, s.Total())
	for _, name := range s.Successful {
		units = append(units, store.UnitRecord{FileName: name, Kind: unitKind(name), Status: "converted"})
	}
	for _, entry := range s.Failed {
		name, detail := splitFailure(entry)
		units = append(units, store.UnitRecord{FileName: name, Kind: unitKind(name), Status: "failed", Detail: detail})
	}
	return units
}

func unitKind(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".cls") {
		return "class"
	}
	return "module"
}

// splitFailure separates "name.bas (reason)" entries into name and reason.
func splitFailure(entry string) (string, string) {
	if i := strings.LastIndex(entry, " ("); i >= 0 && strings.HasSuffix(entry, ")") {
		return entry[:i], entry[i+2 : len(entry)-1]
	}
	return entry, ""
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
