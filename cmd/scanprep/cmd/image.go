package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/scanprep/internal/batch"
	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/pipeline"
	"github.com/MeKo-Tech/scanprep/internal/utils"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// imageReport is the summary entry for one input image.
type imageReport struct {
	File      string            `json:"file"`
	Output    string            `json:"output"`
	Result    *pipeline.Result  `json:"result"`
	Text      *oracle.TextStats `json:"text,omitempty"`
	TextError string            `json:"text_error,omitempty"`
}

func newImageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image [files...]",
		Short: "Process images through the preprocessing pipeline",
		Long: `Process one or more image files and write each result as a grayscale PNG
named <name><suffix>.png in the output directory.

Supported formats: JPEG, PNG, BMP, TIFF

Examples:
  scanprep image scan.jpg
  scanprep image *.png --steps contrast,deskew,threshold --format json
  scanprep image page.tif --recognize --language german`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("no input files provided")
			}
			recognize, _ := cmd.Flags().GetBool("recognize")
			return a.runImage(cmd, args, recognize)
		},
	}
	addOutputFlags(cmd)
	cmd.Flags().Bool("recognize", false, "run the oracle on each output and report text statistics")
	cmd.Flags().Int("recognize-psm", oracle.DefaultRecognizePSM, "tesseract page segmentation mode for --recognize")
	return cmd
}

// addOutputFlags registers the flags shared by the image, batch and pdf commands.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-dir", "d", ".", "directory for processed images")
	cmd.Flags().String("suffix", "_processed", "suffix appended to output file names")
	cmd.Flags().StringP("format", "f", outputFormatText, "summary format: text, json, csv")
	cmd.Flags().StringP("output", "o", "", "summary file (default: stdout)")
}

func (a *app) runImage(cmd *cobra.Command, args []string, recognize bool) (err error) {
	cfg := a.cfg
	s, err := a.newSession()
	if err != nil {
		return err
	}
	defer func() { err = s.finish("image", err) }()

	var textOracle oracle.Oracle
	if recognize {
		textOracle, err = s.openOracle(cfg.ToRecognizeOptions())
		if err != nil {
			return fmt.Errorf("--recognize needs a text-capable oracle: %w", err)
		}
		defer func() { _ = oracle.Close(textOracle) }()
	}

	ctx := cmd.Context()
	reports := make([]imageReport, 0, len(args))
	for _, path := range args {
		rep, err := processImageFile(ctx, s, path, textOracle)
		if err != nil {
			return err
		}
		a.logger.Info("image processed", "file", path, "output", rep.Output,
			"steps", rep.Result.AppliedNames(), "duration_ms", rep.Result.Processing.TotalNs/1e6)
		reports = append(reports, rep)
	}

	out, err := formatImageReports(reports, cfg.Output.Format)
	if err != nil {
		return err
	}
	return writeSummary(cmd.OutOrStdout(), out, cfg.Output.File)
}

func processImageFile(ctx context.Context, s *session, path string, textOracle oracle.Oracle) (imageReport, error) {
	if !utils.IsSupportedImage(path) {
		return imageReport{}, fmt.Errorf("unsupported image format: %s", path)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return imageReport{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	res, err := s.exec.Process(ctx, img, s.steps)
	if err != nil {
		return imageReport{}, fmt.Errorf("preprocessing failed for %s: %w", path, err)
	}

	rep := imageReport{File: path, Result: res}
	if textOracle != nil {
		text, err := textOracle.RecognizeText(ctx, res.Image)
		if err != nil {
			rep.TextError = err.Error()
		} else {
			st := oracle.ComputeTextStats(text)
			rep.Text = &st
		}
	}

	rep.Output, err = batch.WriteOutput(res.Image, path, 0, s.cfg.Output.Dir, s.cfg.Output.Suffix)
	if err != nil {
		return imageReport{}, fmt.Errorf("failed to save %s: %w", path, err)
	}
	res.Image = nil
	return rep, nil
}

func formatImageReports(reports []imageReport, format string) (string, error) {
	switch format {
	case outputFormatJSON:
		b, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(b) + "\n", nil
	case outputFormatCSV:
		return imageReportsCSV(reports)
	case outputFormatText, "":
		var sb strings.Builder
		for _, r := range reports {
			res := r.Result
			fmt.Fprintf(&sb, "%s -> %s [%dx%d -> %dx%d] steps: %s",
				r.File, r.Output, res.InputWidth, res.InputHeight, res.Width, res.Height,
				strings.Join(res.AppliedNames(), ","))
			if res.Orientation != nil {
				fmt.Fprintf(&sb, " rotated %d", res.Orientation.Angle)
			}
			if res.DeskewAngle != nil {
				fmt.Fprintf(&sb, " deskew %.2f", *res.DeskewAngle)
			}
			sb.WriteByte('\n')
			switch {
			case r.Text != nil:
				fmt.Fprintf(&sb, "  text: %d words, %d characters, %d lines, avg word length %.2f\n",
					r.Text.Words, r.Text.Characters, r.Text.Lines, r.Text.AvgWordLength)
			case r.TextError != "":
				fmt.Fprintf(&sb, "  text: unavailable (%s)\n", r.TextError)
			}
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func imageReportsCSV(reports []imageReport) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{{
		"file", "output", "input_width", "input_height", "width", "height", "steps",
		"orientation", "deskew_angle", "words", "characters", "lines", "avg_word_length",
	}}
	for _, r := range reports {
		res := r.Result
		row := []string{
			r.File, r.Output,
			strconv.Itoa(res.InputWidth), strconv.Itoa(res.InputHeight),
			strconv.Itoa(res.Width), strconv.Itoa(res.Height),
			strings.Join(res.AppliedNames(), ";"),
			"", "", "", "", "", "",
		}
		if res.Orientation != nil {
			row[7] = strconv.Itoa(res.Orientation.Angle)
		}
		if res.DeskewAngle != nil {
			row[8] = strconv.FormatFloat(*res.DeskewAngle, 'f', 2, 64)
		}
		if r.Text != nil {
			row[9] = strconv.Itoa(r.Text.Words)
			row[10] = strconv.Itoa(r.Text.Characters)
			row[11] = strconv.Itoa(r.Text.Lines)
			row[12] = strconv.FormatFloat(r.Text.AvgWordLength, 'f', 2, 64)
		}
		rows = append(rows, row)
	}
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("format csv failed: %w", err)
	}
	return buf.String(), nil
}

// writeSummary writes out to file, or to w when file is empty.
func writeSummary(w io.Writer, out, file string) error {
	if file == "" {
		_, err := fmt.Fprint(w, out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, err := fmt.Fprintf(w, "Results written to %s\n", file)
	return err
}
