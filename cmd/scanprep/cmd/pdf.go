package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/scanprep/internal/batch"
	"github.com/MeKo-Tech/scanprep/internal/config"
	"github.com/MeKo-Tech/scanprep/internal/pdf"
	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

// pdfReport is the summary for one document.
type pdfReport struct {
	*pdf.DocumentResult
	Outputs   map[int]string `json:"outputs"`
	OutputPDF string         `json:"output_pdf,omitempty"`
}

func newPDFCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf [files...]",
		Short: "Preprocess the scanned pages of PDF files",
		Long: `Extract the page images of scanned PDF files, preprocess every page and
write the results as <name>_p<page><suffix>.png. With --output-pdf the
processed pages are also assembled into a new PDF.

Examples:
  scanprep pdf contract.pdf
  scanprep pdf contract.pdf --pages 1-3,7 --format json
  scanprep pdf contract.pdf --output-pdf contract_clean.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outPDF, _ := cmd.Flags().GetString("output-pdf")
			if outPDF != "" && len(args) > 1 {
				return errors.New("--output-pdf takes a single input file")
			}
			password, _ := cmd.Flags().GetString("password")
			return a.runPDF(cmd, args, pdf.Options{Pages: a.cfg.PDF.Pages, Password: password}, outPDF)
		},
	}
	addOutputFlags(cmd)
	cmd.Flags().String("pages", "", "page selection, e.g. 1-3,7 (default: all pages)")
	cmd.Flags().String("password", "", "password for encrypted files")
	cmd.Flags().String("output-pdf", "", "also write the processed pages into this PDF")
	cmd.Flags().IntP("workers", "w", config.DefaultConfig().Batch.Workers, "number of pages processed in parallel")
	return cmd
}

func (a *app) runPDF(cmd *cobra.Command, files []string, opts pdf.Options, outPDF string) (err error) {
	cfg := a.cfg
	s, err := a.newSession()
	if err != nil {
		return err
	}
	defer func() { err = s.finish("pdf", err) }()

	proc := pdf.NewProcessor(s.exec, s.steps).WithParallelConfig(pipeline.ParallelConfig{MaxWorkers: cfg.Batch.Workers})
	reports := make([]pdfReport, 0, len(files))
	for _, f := range files {
		if !pdf.IsPDF(f) {
			return fmt.Errorf("not a PDF file: %s", f)
		}
		doc, err := proc.ProcessFile(cmd.Context(), f, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		rep := pdfReport{DocumentResult: doc, Outputs: make(map[int]string, len(doc.Pages))}

		if outPDF != "" {
			images := doc.Images()
			if len(images) == 0 {
				return fmt.Errorf("%s: no processed pages to write", f)
			}
			if err := pdf.WriteDocumentFile(outPDF, images); err != nil {
				return err
			}
			rep.OutputPDF = outPDF
		}

		for i := range doc.Pages {
			pg := &doc.Pages[i]
			if pg.Result == nil || pg.Result.Image == nil {
				continue
			}
			out, err := batch.WriteOutput(pg.Result.Image, f, pg.PageNumber, cfg.Output.Dir, cfg.Output.Suffix)
			if err != nil {
				return fmt.Errorf("failed to save page %d of %s: %w", pg.PageNumber, f, err)
			}
			pg.Result.Image = nil
			rep.Outputs[pg.PageNumber] = out
		}
		for _, pg := range doc.Pages {
			if pg.Error != "" {
				a.logger.Warn("page failed", "file", f, "page", pg.PageNumber, "error", pg.Error)
			}
		}
		if len(doc.Missing) > 0 {
			a.logger.Warn("pages without an image were skipped", "file", f, "pages", doc.Missing)
		}
		a.logger.Info("pdf processed", "file", f, "pages", len(doc.Pages), "failed", doc.Failed(),
			"total_ms", doc.Processing.TotalTimeMs)
		reports = append(reports, rep)
	}

	out, err := formatPDFReports(reports, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeSummary(cmd.OutOrStdout(), out, cfg.Output.File)
}

func formatPDFReports(reports []pdfReport, format string) (string, error) {
	switch format {
	case outputFormatJSON:
		b, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(b) + "\n", nil
	case outputFormatCSV:
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"file", "page", "output", "width", "height", "steps", "error"})
		for _, r := range reports {
			for _, pg := range r.Pages {
				row := []string{r.Filename, strconv.Itoa(pg.PageNumber), r.Outputs[pg.PageNumber], "", "", "", pg.Error}
				if pg.Result != nil {
					row[3] = strconv.Itoa(pg.Result.Width)
					row[4] = strconv.Itoa(pg.Result.Height)
					row[5] = strings.Join(pg.Result.AppliedNames(), ";")
				}
				_ = w.Write(row)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", fmt.Errorf("format csv failed: %w", err)
		}
		return buf.String(), nil
	case outputFormatText, "":
		var sb strings.Builder
		for _, r := range reports {
			fmt.Fprintf(&sb, "%s: %d of %d pages\n", r.Filename, len(r.Pages), r.TotalPages)
			for _, pg := range r.Pages {
				if pg.Error != "" {
					fmt.Fprintf(&sb, "  page %d: FAILED %s\n", pg.PageNumber, pg.Error)
					continue
				}
				fmt.Fprintf(&sb, "  page %d -> %s [%dx%d -> %dx%d]\n", pg.PageNumber, r.Outputs[pg.PageNumber],
					pg.Width, pg.Height, pg.Result.Width, pg.Result.Height)
			}
			if len(r.Missing) > 0 {
				fmt.Fprintf(&sb, "  pages without image: %v\n", r.Missing)
			}
			if r.OutputPDF != "" {
				fmt.Fprintf(&sb, "  written to %s\n", r.OutputPDF)
			}
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
