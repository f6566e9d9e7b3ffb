package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

var stepDescriptions = map[string]string{
	"contrast":         "gamma correction followed by CLAHE",
	"denoise":          "non-local means denoising",
	"edge_enhancement": "add the morphological gradient back onto the page",
	"sharpen":          "3x3 sharpening kernel",
	"threshold":        "binarise at a fixed cutoff",
	"deskew":           "rotate by the median angle of detected line segments",
	"orientation":      "try quarter turns and keep the one the oracle reads best",
	"crop":             "crop to the union of confident word boxes",
}

type stepInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
	NeedsOracle bool   `json:"needs_oracle"`
}

func listSteps() []stepInfo {
	defaults := pipeline.DefaultSteps()
	var out []stepInfo
	for _, name := range pipeline.AvailableSteps() {
		out = append(out, stepInfo{
			Name:        name,
			Description: stepDescriptions[name],
			Default:     slices.Contains(defaults, name),
			NeedsOracle: name == "orientation" || name == "crop",
		})
	}
	return out
}

func newStepsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "List the available preprocessing steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps := listSteps()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(steps)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "STEP\tDEFAULT\tORACLE\tDESCRIPTION")
			for _, s := range steps {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, yesNo(s.Default), yesNo(s.NeedsOracle), s.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
