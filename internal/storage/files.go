// Package storage owns the on-disk layout for uploads and generated outputs.
// Uploads live at uploads/<job_id><ext>; everything produced for a job lives
// under outputs/<job_id>/ so cleanup is a single directory removal.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var extByMIME = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Layout resolves filesystem paths for job artifacts.
type Layout struct {
	UploadsDir string
	OutputsDir string
}

func NewLayout(uploadsDir, outputsDir string) *Layout {
	return &Layout{UploadsDir: uploadsDir, OutputsDir: outputsDir}
}

// Init creates the base directories.
func (l *Layout) Init() error {
	for _, dir := range []string{l.UploadsDir, l.OutputsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// UploadPath returns the destination path for an uploaded file.
func (l *Layout) UploadPath(jobID, mimeType string) string {
	ext, ok := extByMIME[mimeType]
	if !ok {
		ext = ".bin"
	}
	return filepath.Join(l.UploadsDir, jobID+ext)
}

// OutputDir returns the per-job output directory.
func (l *Layout) OutputDir(jobID string) string {
	return filepath.Join(l.OutputsDir, jobID)
}

// ChartsDir returns the directory chart PNGs are rendered into.
func (l *Layout) ChartsDir(jobID string) string {
	return filepath.Join(l.OutputsDir, jobID, "charts")
}

// PDFPath returns the path of the generated PDF report.
func (l *Layout) PDFPath(jobID string) string {
	return filepath.Join(l.OutputsDir, jobID, "report.pdf")
}

// SaveUpload streams an upload to disk and returns its path.
func (l *Layout) SaveUpload(jobID, mimeType string, r io.Reader) (string, error) {
	path := l.UploadPath(jobID, mimeType)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

// Remove deletes everything stored for a job. Missing files are not errors.
func (l *Layout) Remove(jobID, uploadPath string) error {
	if uploadPath != "" {
		if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove upload: %w", err)
		}
	}
	if err := os.RemoveAll(l.OutputDir(jobID)); err != nil {
		return fmt.Errorf("remove outputs: %w", err)
	}
	return nil
}
