package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/transform"
)

// checkReport is printed by the check command.
type checkReport struct {
	Backend     string              `json:"backend"`
	Language    string              `json:"language"`
	Accelerated bool                `json:"accelerated"`
	Error       string              `json:"error,omitempty"`
	Probe       *oracle.ProbeReport `json:"probe,omitempty"`
}

func newCheckCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the recognition backend works",
		Long: `Run every oracle operation once on a synthetic page and report which ones
answered. Orientation detection must work for the check to pass; text
recognition and word boxes are reported but optional.

Examples:
  scanprep check
  scanprep check --backend heuristic
  scanprep check --language german --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return a.runCheck(cmd, asJSON)
		},
	}
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

var errCheckFailed = errors.New("oracle check failed")

func (a *app) runCheck(cmd *cobra.Command, asJSON bool) error {
	opts := a.cfg.ToOracleOptions()
	rep := checkReport{
		Backend:     opts.Backend,
		Language:    oracle.ResolveLanguage(opts.Language),
		Accelerated: transform.AcceleratorAvailable(),
	}

	o, err := oracle.New(opts)
	if err != nil {
		rep.Error = err.Error()
	} else {
		defer func() { _ = oracle.Close(o) }()
		probe := oracle.Probe(cmd.Context(), o, a.cfg.Pipeline.Crop.MinConfidence)
		rep.Probe = &probe
	}
	a.logger.Debug("oracle check finished", "backend", rep.Backend, "error", rep.Error)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printCheckReport(out, rep)
	}

	if rep.Probe == nil || !rep.Probe.Healthy() {
		return errCheckFailed
	}
	return nil
}

func printCheckReport(w io.Writer, rep checkReport) {
	_, _ = fmt.Fprintf(w, "Backend:     %s\n", rep.Backend)
	_, _ = fmt.Fprintf(w, "Language:    %s\n", rep.Language)
	_, _ = fmt.Fprintf(w, "Accelerated: %t\n", rep.Accelerated)
	if rep.Probe == nil {
		_, _ = fmt.Fprintf(w, "Status:      unavailable (%s)\n", rep.Error)
		return
	}
	p := rep.Probe
	if p.Orientation.Available {
		_, _ = fmt.Fprintf(w, "Orientation: ok (rotate %d, confidence %.2f)\n", p.Orientation.Rotate, p.Orientation.Confidence)
	} else {
		_, _ = fmt.Fprintf(w, "Orientation: unavailable (%s)\n", p.Orientation.Error)
	}
	if p.Text.Available {
		_, _ = fmt.Fprintf(w, "Text:        ok (%d words, %d lines)\n", p.Text.Stats.Words, p.Text.Stats.Lines)
	} else {
		_, _ = fmt.Fprintf(w, "Text:        unavailable (%s)\n", p.Text.Error)
	}
	if p.Boxes.Available {
		_, _ = fmt.Fprintf(w, "Word boxes:  ok (%d boxes)\n", p.Boxes.Count)
	} else {
		_, _ = fmt.Fprintf(w, "Word boxes:  unavailable (%s)\n", p.Boxes.Error)
	}
	status := "ok"
	if !p.Healthy() {
		status = "failed"
	}
	_, _ = fmt.Fprintf(w, "Status:      %s\n", status)
}
