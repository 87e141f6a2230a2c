// Package project assembles a converted Worker Service project: it walks an
// extracted VB6 source tree, runs every unit through the converter, places
// outputs by classification, and writes the scaffold around them.
package project

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/archanaanairr/vb6/internal/classify"
	"github.com/archanaanairr/vb6/internal/convert"
	"github.com/archanaanairr/vb6/internal/scaffold"
)

// Files above this size are reported as large in the conversion summary.
const largeFileThreshold = 10000

// UnitConverter is the per-unit conversion contract.
type UnitConverter interface {
	ConvertModule(ctx context.Context, unit convert.Unit, namespace string) (convert.Result, error)
	ConvertClass(ctx context.Context, unit convert.Unit, namespace string) (convert.Result, error)
}

// Summary reports one build: which units converted, which failed and why,
// and which were large enough to be chunked.
type Summary struct {
	ProjectName string
	Namespace   string
	Successful  []string
	Failed      []string
	Large       []string
}

func (s Summary) Total() int { return len(s.Successful) + len(s.Failed) }

// Warning names the first few failed files, or empty when nothing failed.
func (s Summary) Warning() string {
	if len(s.Failed) == 0 {
		return ""
	}
	names := s.Failed
	suffix := ""
	if len(names) > 3 {
		names = names[:3]
		suffix = "..."
	}
	return fmt.Sprintf("Some files failed to convert: %s%s", strings.Join(names, ", "), suffix)
}

// Info notes chunked large files, or empty when there were none.
func (s Summary) Info() string {
	if len(s.Large) == 0 {
		return ""
	}
	return fmt.Sprintf("Large files were chunked and processed: %d files", len(s.Large))
}

type Builder struct {
	converter UnitConverter
	logger    *slog.Logger
}

func NewBuilder(converter UnitConverter, logger *slog.Logger) *Builder {
	return &Builder{converter: converter, logger: logger}
}

// Build converts every .bas and .cls unit under inputDir into a Worker
// Service project at outputDir/<project>. Per-unit failures are recorded in
// the summary and never abort the build; only infrastructure failures do.
func (b *Builder) Build(ctx context.Context, inputDir, outputDir, projectName, namespace string) (Summary, error) {
	projectName = classify.ProjectName(projectName)
	summary := Summary{ProjectName: projectName, Namespace: namespace}

	projectRoot := filepath.Join(outputDir, projectName)
	for _, sub := range []string{"Models", "Services", "Helpers", "wwwroot"} {
		if err := os.MkdirAll(filepath.Join(projectRoot, sub), 0o755); err != nil {
			return summary, fmt.Errorf("create project layout: %w", err)
		}
	}

	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".bas" && ext != ".cls" {
			return nil
		}
		name := d.Name()

		raw, err := os.ReadFile(path)
		if err != nil {
			b.logger.Error("read failed", "file", name, "error", err)
			summary.Failed = append(summary.Failed, name+" (read error)")
			return nil
		}
		text := string(raw)

		if strings.TrimSpace(text) == "" {
			b.logger.Warn("skipping empty file", "file", name)
			summary.Failed = append(summary.Failed, name+" (empty)")
			return nil
		}
		if len(text) > largeFileThreshold {
			summary.Large = append(summary.Large, fmt.Sprintf("%s (%d lines)", name, strings.Count(text, "\n")+1))
		}

		if ext == ".bas" {
			b.buildModule(ctx, &summary, projectRoot, name, text, namespace)
		} else {
			b.buildClass(ctx, &summary, projectRoot, name, text, namespace)
		}
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("walk input: %w", err)
	}

	if err := b.writeScaffold(projectRoot, projectName, namespace, summary); err != nil {
		return summary, err
	}

	b.logger.Info("project build finished",
		"project", projectName,
		"successful", len(summary.Successful),
		"failed", len(summary.Failed),
		"large", len(summary.Large),
	)
	return summary, nil
}

func (b *Builder) buildModule(ctx context.Context, summary *Summary, projectRoot, name, text, namespace string) {
	b.logger.Info("processing module", "file", name, "size", len(text))

	unit := convert.Unit{Name: name, Text: text, Kind: convert.KindModule}
	result, err := b.converter.ConvertModule(ctx, unit, namespace)
	if err != nil {
		b.logger.Warn("module conversion failed", "file", name, "error", err)
		summary.Failed = append(summary.Failed, name+" (conversion failed)")
		return
	}

	for fileName, code := range result {
		if !strings.HasSuffix(fileName, ".cs") {
			continue
		}
		clean := Sanitize(code)
		if clean == "" {
			continue
		}
		target := filepath.Join(projectRoot, "Services", fileName)
		if err := os.WriteFile(target, []byte(clean+"\n"), 0o644); err != nil {
			b.logger.Error("write failed", "file", fileName, "error", err)
			summary.Failed = append(summary.Failed, name+" (write error)")
			return
		}
	}
	summary.Successful = append(summary.Successful, name)
}

func (b *Builder) buildClass(ctx context.Context, summary *Summary, projectRoot, name, text, namespace string) {
	purpose := classify.Purpose(text)
	b.logger.Info("processing class", "file", name, "purpose", purpose, "size", len(text))

	unit := convert.Unit{Name: name, Text: text, Kind: convert.KindClass}
	result, err := b.converter.ConvertClass(ctx, unit, namespace)
	if err != nil {
		b.logger.Warn("class conversion failed", "file", name, "error", err)
		summary.Failed = append(summary.Failed, name+" (conversion failed)")
		return
	}

	targetDir := "Services"
	if purpose == classify.PurposeModel {
		targetDir = "Models"
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	for fileName, code := range result {
		if !strings.HasSuffix(fileName, ".cs") {
			continue
		}
		clean := Sanitize(code)
		if clean == "" {
			continue
		}
		target := filepath.Join(projectRoot, targetDir, stem+".cs")
		if err := os.WriteFile(target, []byte(clean+"\n"), 0o644); err != nil {
			b.logger.Error("write failed", "file", stem+".cs", "error", err)
			summary.Failed = append(summary.Failed, name+" (write error)")
			return
		}
	}
	summary.Successful = append(summary.Successful, name)
}

func (b *Builder) writeScaffold(projectRoot, projectName, namespace string, summary Summary) error {
	writes := []struct {
		path    string
		content string
	}{
		{filepath.Join(projectRoot, projectName+".csproj"), scaffold.Csproj(projectName)},
		{filepath.Join(projectRoot, "Program.cs"), scaffold.ProgramCS(namespace)},
		{filepath.Join(projectRoot, "Worker.cs"), scaffold.WorkerCS(namespace)},
		{filepath.Join(projectRoot, "appsettings.json"), scaffold.AppSettings()},
		{filepath.Join(projectRoot, "Helpers", "Constants.cs"), scaffold.HelperConstants(namespace, projectName)},
		{filepath.Join(projectRoot, "README.md"), scaffold.README(projectName, summary.Successful, summary.Failed, summary.Large)},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, []byte(w.content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(w.path), err)
		}
	}
	return nil
}

// Sanitize strips markdown fences the model may leave around code and
// collapses runs of blank lines. Comments are kept; repair annotations from
// the conversion pipeline live in comments.
func Sanitize(code string) string {
	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		if trimmed == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
