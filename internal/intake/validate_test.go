package intake

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/usmanhx/labinsight/internal/config"
)

func uploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSize: 1024 * 1024,
		MaxPages:    30,
	}
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mimeType string
		content  []byte
		wantErr  string
	}{
		{
			name:     "valid png",
			filename: "report.png",
			mimeType: "image/png",
			content:  []byte("fake png bytes"),
		},
		{
			name:     "valid jpeg",
			filename: "report.jpeg",
			mimeType: "image/jpeg",
			content:  []byte("fake jpeg bytes"),
		},
		{
			name:     "unsupported mime type",
			filename: "report.docx",
			mimeType: "application/msword",
			content:  []byte("doc"),
			wantErr:  "unsupported file type",
		},
		{
			name:     "extension mismatch",
			filename: "report.exe",
			mimeType: "image/png",
			content:  []byte("x"),
			wantErr:  "unsupported file extension",
		},
		{
			name:     "too large",
			filename: "report.png",
			mimeType: "image/png",
			content:  []byte(strings.Repeat("x", 1024*1024+1)),
			wantErr:  "too large",
		},
		{
			name:     "corrupted pdf",
			filename: "report.pdf",
			mimeType: "application/pdf",
			content:  []byte("not a pdf at all"),
			wantErr:  "may be corrupted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.mimeType, tt.content, uploadConfig())
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidFile)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateLanguage(t *testing.T) {
	assert.NoError(t, ValidateLanguage("en"))
	assert.NoError(t, ValidateLanguage("ur"))
	assert.ErrorIs(t, ValidateLanguage("de"), ErrInvalidFile)
}

func TestValidateAge(t *testing.T) {
	assert.NoError(t, ValidateAge(1))
	assert.NoError(t, ValidateAge(42))
	assert.NoError(t, ValidateAge(120))
	assert.Error(t, ValidateAge(0))
	assert.Error(t, ValidateAge(121))
}
