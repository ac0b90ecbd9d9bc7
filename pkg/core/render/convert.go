// Package render converts SVG documents into PDF and PNG by shelling out to
// rsvg-convert from librsvg.
//
// Install librsvg with "brew install librsvg" (macOS) or
// "apt install librsvg2-bin" (Linux). Use [Available] to check for it before
// offering binary formats.
package render

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const converter = "rsvg-convert"

// Available reports whether rsvg-convert is on PATH.
func Available() bool {
	_, err := exec.LookPath(converter)
	return err == nil
}

// ToPDF converts SVG bytes to a single-page PDF.
func ToPDF(svg []byte) ([]byte, error) {
	return rsvgConvert(svg, "pdf")
}

// ToPDFPages converts one SVG document per page into a multi-page PDF.
func ToPDFPages(pages [][]byte) ([]byte, error) {
	switch len(pages) {
	case 0:
		return nil, fmt.Errorf("no pages to convert")
	case 1:
		return ToPDF(pages[0])
	}
	if err := lookPath("pdf"); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "reportflow-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"-f", "pdf"}
	for i, svg := range pages {
		path := filepath.Join(dir, fmt.Sprintf("page-%03d.svg", i+1))
		if err := os.WriteFile(path, svg, 0o600); err != nil {
			return nil, fmt.Errorf("write page %d: %w", i+1, err)
		}
		args = append(args, path)
	}
	return run(nil, args)
}

// ToPNG converts SVG bytes to PNG using rsvg-convert with the given scale factor.
// Scale of 2.0 produces a 2x resolution image.
func ToPNG(svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	return rsvgConvert(svg, "png", "-z", fmt.Sprintf("%.2f", scale))
}

// rsvgConvert shells out to rsvg-convert for format conversion.
func rsvgConvert(svg []byte, format string, extraArgs ...string) ([]byte, error) {
	if err := lookPath(format); err != nil {
		return nil, err
	}
	args := append([]string{"-f", format}, extraArgs...)
	return run(svg, args)
}

func lookPath(format string) error {
	if _, err := exec.LookPath(converter); err != nil {
		return fmt.Errorf("%s export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin", format)
	}
	return nil
}

func run(stdin []byte, args []string) ([]byte, error) {
	cmd := exec.Command(converter, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("rsvg-convert: %v: %s", err, errBuf.String())
	}
	return out.Bytes(), nil
}
