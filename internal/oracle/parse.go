package oracle

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoOrientation is returned when OSD output lacks a rotation line.
var ErrNoOrientation = errors.New("no rotation in OSD output")

// ParseOSD extracts the "Rotate:" and "Orientation confidence:" fields from
// tesseract's orientation and script detection report.
func ParseOSD(out []byte) (Estimate, error) {
	var est Estimate
	haveRot := false
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Rotate":
			r, err := strconv.Atoi(value)
			if err != nil {
				return Estimate{}, fmt.Errorf("parse rotate %q: %w", value, err)
			}
			est.Rotate = r
			haveRot = true
		case "Orientation confidence":
			c, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Estimate{}, fmt.Errorf("parse orientation confidence %q: %w", value, err)
			}
			est.Confidence = c
		}
	}
	if err := scanner.Err(); err != nil {
		return Estimate{}, err
	}
	if !haveRot {
		return Estimate{}, ErrNoOrientation
	}
	return est, nil
}

// tsv column indices of tesseract's TSV renderer.
const (
	tsvLevel  = 0
	tsvLeft   = 6
	tsvTop    = 7
	tsvWidth  = 8
	tsvHeight = 9
	tsvConf   = 10
	tsvText   = 11
	tsvFields = 12

	wordLevel = 5
)

// ParseTSV returns the word-level rows of tesseract TSV output. Rows whose
// confidence cannot be parsed are kept with confidence 0.
func ParseTSV(out []byte) ([]TextRegion, error) {
	var regions []TextRegion
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			if strings.HasPrefix(line, "level") {
				continue
			}
		}
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", tsvFields)
		if len(fields) < tsvFields-1 {
			continue
		}
		if lvl, err := strconv.Atoi(fields[tsvLevel]); err != nil || lvl != wordLevel {
			continue
		}
		nums := [4]int{}
		for i, col := range []int{tsvLeft, tsvTop, tsvWidth, tsvHeight} {
			n, err := strconv.Atoi(strings.TrimSpace(fields[col]))
			if err != nil {
				return nil, fmt.Errorf("parse tsv column %d %q: %w", col, fields[col], err)
			}
			nums[i] = n
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(fields[tsvConf]), 64)
		if err != nil {
			conf = 0
		}
		var text string
		if len(fields) > tsvText {
			text = fields[tsvText]
		}
		regions = append(regions, TextRegion{
			Left:       nums[0],
			Top:        nums[1],
			Right:      nums[0] + nums[2],
			Bottom:     nums[1] + nums[3],
			Confidence: conf,
			Text:       text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return regions, nil
}
