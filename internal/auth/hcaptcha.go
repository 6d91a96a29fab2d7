package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const hcaptchaVerifyURL = "https://api.hcaptcha.com/siteverify"

// CaptchaVerifier checks a human-verification challenge response
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// HCaptchaVerifier verifies challenge responses against the hCaptcha API
type HCaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

// NewHCaptchaVerifier creates a verifier with the account secret
func NewHCaptchaVerifier(secret string) *HCaptchaVerifier {
	return &HCaptchaVerifier{
		secret:    secret,
		verifyURL: hcaptchaVerifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify posts the challenge response to the verification endpoint
func (v *HCaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if token == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode captcha response: %w", err)
	}

	return result.Success, nil
}

// AllowAllVerifier accepts every challenge. Used when no captcha secret is
// configured (local development).
type AllowAllVerifier struct{}

// Verify always reports success
func (AllowAllVerifier) Verify(context.Context, string, string) (bool, error) {
	return true, nil
}
