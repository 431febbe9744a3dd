package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/usmanhx/labinsight/internal/config"
)

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// ErrRecaptcha wraps verification failures; the message is user-facing.
var ErrRecaptcha = errors.New("recaptcha verification failed")

// RecaptchaVerifier checks reCAPTCHA v3 tokens. A verifier with no secret key
// configured accepts everything, which is the development default.
type RecaptchaVerifier struct {
	cfg    config.RecaptchaConfig
	client *http.Client
	// verifyURL is overridable in tests.
	verifyURL string
}

func NewRecaptchaVerifier(cfg config.RecaptchaConfig) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		cfg:       cfg,
		client:    &http.Client{Timeout: 10 * time.Second},
		verifyURL: recaptchaVerifyURL,
	}
}

// Enabled reports whether verification is configured.
func (v *RecaptchaVerifier) Enabled() bool {
	return v.cfg.SecretKey != "" && v.cfg.SecretKey != "placeholder"
}

// Verify checks the token against Google's siteverify endpoint. No-op when
// not configured.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		return fmt.Errorf("%w: reCAPTCHA token is required", ErrRecaptcha)
	}

	form := url.Values{
		"secret":   {v.cfg.SecretKey},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: reCAPTCHA verification unavailable", ErrRecaptcha)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: reCAPTCHA verification unavailable", ErrRecaptcha)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool    `json:"success"`
		Score   float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: reCAPTCHA verification unavailable", ErrRecaptcha)
	}

	if !result.Success {
		return ErrRecaptcha
	}
	if result.Score < v.cfg.MinScore {
		return fmt.Errorf("%w: score too low: %.2f", ErrRecaptcha, result.Score)
	}
	return nil
}
