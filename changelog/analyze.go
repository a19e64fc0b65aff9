package changelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeffrom/tagnotes/ai"
	"github.com/jeffrom/tagnotes/model"
	"github.com/jeffrom/tagnotes/progress"
)

// BatchLimits bounds each commit's diff during batch analysis.
var BatchLimits = Limits{Files: 10, Lines: 15}

// AnalyzedCommit is one commit as categorized by the model.
type AnalyzedCommit struct {
	ID               string   `json:"id"`
	Category         string   `json:"category"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	TechnicalDetails string   `json:"technical_details"`
	FilesAffected    []string `json:"files_affected"`
}

type Analysis struct {
	Commits []AnalyzedCommit `json:"commits"`
}

const analyzePrompt = `Analiza estos commits y categorízalos en:
- features: Nuevas características
- improvements: Mejoras a funcionalidad existente
- fixes: Correcciones de bugs
- breaking_changes: Cambios que rompen compatibilidad
- architecture: Cambios arquitectónicos
- dependencies: Cambios en dependencias
- performance: Mejoras de rendimiento
- security: Parches de seguridad
- testing: Cambios en tests
- docs: Cambios en documentación
- other: Otros cambios

Para cada commit, proporciona:
- category: La categoría principal
- title: Título descriptivo
- description: Descripción detallada
- technical_details: Detalles técnicos relevantes
- files_affected: Archivos principales afectados

Responde SOLO con un JSON válido con esta estructura:
{
  "commits": [
    {
      "id": "commit_id",
      "category": "category_name",
      "title": "título",
      "description": "descripción",
      "technical_details": "detalles técnicos",
      "files_affected": ["file1", "file2"]
    }
  ]
}`

// BuildBatchContext renders one batch of commits for categorization.
func BuildBatchContext(details []*model.CommitDetail, lim Limits) string {
	b := &strings.Builder{}
	b.WriteString("# Commits to Analyze\n\n")
	for _, d := range details {
		fmt.Fprintf(b, "## Commit %s\n", d.ShortID)
		fmt.Fprintf(b, "**Author:** %s\n", d.Author)
		fmt.Fprintf(b, "**Date:** %s\n", formatDate(d.Date))
		fmt.Fprintf(b, "**Message:**\n%s\n\n", d.Message)
		fmt.Fprintf(b, "**Stats:** +%d -%d\n\n", d.Stats.Additions, d.Stats.Deletions)

		b.WriteString("**Files Changed:**\n")
		for _, fd := range limitFiles(d.Diff, lim.Files) {
			fmt.Fprintf(b, "- %s\n", fd.Path())
			if fd.PatchText != "" {
				fmt.Fprintf(b, "  ```diff\n%s\n  ```\n", headLines(fd.PatchText, lim.Lines))
			}
		}
		b.WriteString("\n---\n\n")
	}
	return b.String()
}

// ParseAnalysis decodes the outermost JSON object in a model reply.
func ParseAnalysis(text string) (*Analysis, error) {
	obj, ok := ai.ExtractJSON(text)
	if !ok {
		return nil, errors.New("no JSON object in response")
	}
	var res Analysis
	if err := json.Unmarshal([]byte(obj), &res); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return &res, nil
}

func batches(details []*model.CommitDetail, size int) [][]*model.CommitDetail {
	if size <= 0 {
		size = len(details)
	}
	var res [][]*model.CommitDetail
	for start := 0; start < len(details); start += size {
		end := start + size
		if end > len(details) {
			end = len(details)
		}
		res = append(res, details[start:end])
	}
	return res
}

// Analyze categorizes details in batches of the configured size and
// returns the per-batch results.
func (a *Assembler) Analyze(ctx context.Context, details []*model.CommitDetail) ([]*Analysis, error) {
	stage := progress.StageAnalyze
	groups := batches(details, a.cfg.AnalyzeBatchSize)
	res := make([]*Analysis, 0, len(groups))
	for i, group := range groups {
		n := i + 1
		a.progress.Start(stage, fmt.Sprintf("Analyzing batch %d/%d", n, len(groups)))
		prompt := fmt.Sprintf("%s\n\n=== CONTEXTO DE COMMITS (LOTE %d/%d) ===\n\n%s",
			analyzePrompt, n, len(groups), BuildBatchContext(group, BatchLimits))

		text, err := a.gen.Generate(ctx, prompt, nil)
		if err != nil {
			a.progress.Fail(stage, fmt.Sprintf("Failed to analyze batch %d", n))
			return nil, GenerationError{Batch: n, Err: err}
		}
		analysis, err := ParseAnalysis(text)
		if err != nil {
			a.progress.Fail(stage, fmt.Sprintf("Failed to parse response for batch %d", n))
			return nil, GenerationError{Batch: n, Err: err}
		}
		a.progress.Succeed(stage, fmt.Sprintf("Batch %d/%d analyzed", n, len(groups)))
		res = append(res, analysis)
	}
	return res, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// SummaryContext merges analyses into one document grouped by category,
// in order of first appearance.
func SummaryContext(analyses []*Analysis) string {
	var order []string
	groups := make(map[string][]AnalyzedCommit)
	for _, an := range analyses {
		for _, c := range an.Commits {
			cat := orDefault(c.Category, "other")
			if _, ok := groups[cat]; !ok {
				order = append(order, cat)
			}
			groups[cat] = append(groups[cat], c)
		}
	}

	b := &strings.Builder{}
	b.WriteString("# Analyzed Commits Summary\n\n")
	for _, cat := range order {
		fmt.Fprintf(b, "## %s\n\n", strings.ToUpper(cat))
		for _, c := range groups[cat] {
			fmt.Fprintf(b, "### %s\n", orDefault(c.Title, "No title"))
			fmt.Fprintf(b, "**ID:** %s\n", orDefault(c.ID, "unknown"))
			fmt.Fprintf(b, "**Description:** %s\n", orDefault(c.Description, "No description"))
			fmt.Fprintf(b, "**Technical Details:** %s\n", orDefault(c.TechnicalDetails, "None"))
			if files := c.FilesAffected; len(files) > 0 {
				if len(files) > 5 {
					files = files[:5]
				}
				fmt.Fprintf(b, "**Files:** %s\n", strings.Join(files, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}
