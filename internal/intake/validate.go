// Package intake accepts report submissions: upload validation, reCAPTCHA,
// job creation, and dispatch to the pipeline queue.
package intake

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/usmanhx/labinsight/internal/config"
)

// ErrInvalidFile wraps every upload rejection; the message is user-facing.
var ErrInvalidFile = errors.New("invalid file")

var allowedMIMETypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// SupportedLanguages are the output languages a submission may request.
var SupportedLanguages = map[string]bool{
	"en": true,
	"ur": true,
}

// ValidateUpload checks MIME type, extension, size, and PDF page count.
func ValidateUpload(filename, mimeType string, content []byte, cfg config.UploadConfig) error {
	if !allowedMIMETypes[mimeType] {
		return fmt.Errorf("%w: unsupported file type: %s. Allowed: PDF, JPEG, PNG", ErrInvalidFile, mimeType)
	}

	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		if !allowedExtensions[ext] {
			return fmt.Errorf("%w: unsupported file extension: %s. Allowed: .pdf, .jpg, .jpeg, .png", ErrInvalidFile, ext)
		}
	}

	if int64(len(content)) > cfg.MaxFileSize {
		return fmt.Errorf("%w: file too large (%.1f MB). Maximum allowed: %.0f MB",
			ErrInvalidFile,
			float64(len(content))/(1024*1024),
			float64(cfg.MaxFileSize)/(1024*1024))
	}

	if mimeType == "application/pdf" {
		if err := validatePDFPages(content, cfg.MaxPages); err != nil {
			return err
		}
	}
	return nil
}

func validatePDFPages(content []byte, maxPages int) error {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return fmt.Errorf("%w: could not read the PDF file. It may be corrupted", ErrInvalidFile)
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return fmt.Errorf("%w: could not read the PDF file. It may be corrupted", ErrInvalidFile)
	}
	defer doc.Close()

	if pages := doc.NumPage(); pages > maxPages {
		return fmt.Errorf("%w: PDF has %d pages. Maximum allowed: %d pages", ErrInvalidFile, pages, maxPages)
	}
	return nil
}

// ValidateLanguage checks a requested output language.
func ValidateLanguage(lang string) error {
	if !SupportedLanguages[lang] {
		return fmt.Errorf("%w: unsupported language %q. Allowed: en, ur", ErrInvalidFile, lang)
	}
	return nil
}

// ValidateAge bounds the optional age field.
func ValidateAge(age int) error {
	if age < 1 || age > 120 {
		return fmt.Errorf("%w: age must be between 1 and 120", ErrInvalidFile)
	}
	return nil
}
