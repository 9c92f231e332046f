package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gokinet/domain/run"
	"gokinet/ports"
)

// ReportExporter writes a markdown summary of a run plus an HTML rendering
type ReportExporter struct{}

// NewReportExporter creates a report exporter
func NewReportExporter() *ReportExporter {
	return &ReportExporter{}
}

var _ ports.Exporter = (*ReportExporter)(nil)

// Export writes run-<id>.md and run-<id>.html into dir
func (e *ReportExporter) Export(ctx context.Context, rec *run.Record, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	md := RenderMarkdown(rec)
	mdPath := filepath.Join(dir, fmt.Sprintf("run-%s.md", rec.ID))
	if err := os.WriteFile(mdPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", mdPath, err)
	}

	htmlPath := filepath.Join(dir, fmt.Sprintf("run-%s.html", rec.ID))
	if err := os.WriteFile(htmlPath, renderHTML(md), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", htmlPath, err)
	}
	return nil
}

// RenderMarkdown builds the markdown report body for a record
func RenderMarkdown(rec *run.Record) string {
	var b strings.Builder

	title := rec.Label
	if title == "" {
		title = rec.ID.String()
	}
	fmt.Fprintf(&b, "# Inference run %s\n\n", title)
	fmt.Fprintf(&b, "Run `%s`, created %s.\n\n", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "- Timesteps: %d\n", rec.Timesteps)
	fmt.Fprintf(&b, "- Chains: %d\n", rec.Chains)
	fmt.Fprintf(&b, "- Seed: %d\n", rec.Seed)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", rec.Fingerprint.Digest)
	fmt.Fprintf(&b, "- Converged: %t\n", rec.Converged)
	fmt.Fprintf(&b, "- Divergent draws: %d\n", rec.Divergences)
	fmt.Fprintf(&b, "- Elapsed: %d ms\n\n", rec.ElapsedMs)

	if !rec.Trustworthy() {
		b.WriteString("**Caution: diagnostics flagged this run; treat the estimates below as provisional.**\n\n")
	}
	if len(rec.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range rec.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Posterior estimates\n\n")
	b.WriteString("| Parameter | Mean | SD | HDI low | HDI high | R-hat |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, p := range rec.Params {
		rhat := "n/a"
		if rh, ok := rec.RHat[p.Name]; ok {
			rhat = fmt.Sprintf("%.3f", rh)
		}
		fmt.Fprintf(&b, "| %s | %.4g | %.4g | %.4g | %.4g | %s |\n",
			p.Name, p.Mean, p.StdDev, p.HDILow, p.HDIHigh, rhat)
	}
	b.WriteString("\n")

	if len(rec.Predictive) > 0 {
		b.WriteString("## Posterior predictive\n\n")
		b.WriteString("| t | Predicted | CI low | CI high | Observed |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, p := range rec.Predictive {
			fmt.Fprintf(&b, "| %.4g | %.4g | %.4g | %.4g | %.4g |\n",
				p.T, p.PredictedMean, p.CILow, p.CIHigh, p.Observed)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.Render(doc, renderer)
}
