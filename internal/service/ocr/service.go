package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/medsafe-api/pkg/errors"
	"github.com/jwalitptl/medsafe-api/pkg/logger"
	"github.com/jwalitptl/medsafe-api/pkg/metrics"
	"github.com/jwalitptl/medsafe-api/pkg/security"
)

const (
	fallbackTitle   = "Scanned Prescription"
	unparsedTitle   = "Prescription"
	maxImageBytes   = 10 << 20
	userInstruction = "Please extract all medication information from this prescription image."
)

const systemPrompt = `You are a medical prescription OCR assistant. Your task is to extract medication information from prescription images.

Extract ALL medications found in the image and return them in this exact JSON format:
{
  "medications": [
    {
      "name": "Medication Name",
      "dosage": "Dosage (e.g., 500mg)",
      "frequency": "Frequency (e.g., twice daily)"
    }
  ],
  "prescriptionTitle": "Brief description of the prescription",
  "additionalNotes": "Any other relevant information from the prescription"
}

If you cannot read the prescription or no medications are found, return:
{
  "medications": [],
  "prescriptionTitle": "Unreadable Prescription",
  "additionalNotes": "Could not extract medication information from this image"
}

Always respond with valid JSON only, no additional text.`

type Config struct {
	Endpoint  string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
	CacheTTL  time.Duration
}

// gatewayError is a non-2xx answer from the gateway.
type gatewayError struct {
	status int
	body   string
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("ocr gateway returned %d: %s", e.status, e.body)
}

// Service extracts medications from prescription images through an
// OpenAI-compatible chat completion endpoint. It never fails the upload flow
// on a gateway problem; callers get an empty extraction with a warning instead.
type Service struct {
	cfg     Config
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	cache   *cache.Cache
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewService(cfg Config, m *metrics.Metrics, log *logger.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	s := &Service{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		metrics: m,
		log:     log,
	}
	s.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:                "ocr-gateway",
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		// Client-side rejections (quota, payment) say nothing about gateway health.
		IsSuccessful: func(err error) bool {
			var gwErr *gatewayError
			if errors.As(err, &gwErr) {
				return gwErr.status < 500
			}
			return err == nil
		},
		OnStateChange: func(name, from, to string) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
		},
	})
	return s
}

// Scan extracts medications from a base64 image, with or without a data: prefix.
func (s *Service) Scan(ctx context.Context, imageBase64 string) (*model.Extraction, error) {
	imageBase64 = strings.TrimSpace(imageBase64)
	if imageBase64 == "" {
		return nil, apperrors.ValidationFailed("no image provided", nil)
	}
	if len(imageBase64) > maxImageBytes {
		return nil, apperrors.ValidationFailed("image too large", nil)
	}
	if s.cfg.Endpoint == "" || s.cfg.APIKey == "" {
		s.metrics.OCRRequests.WithLabelValues("disabled").Inc()
		return fallback("Automatic extraction is not configured. Please enter medications manually."), nil
	}

	key := security.Digest([]byte(imageBase64))
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.OCRRequests.WithLabelValues("cached").Inc()
		e := cached.(model.Extraction)
		return &e, nil
	}

	start := time.Now()
	var content string
	err := s.breaker.Execute(func() error {
		var callErr error
		content, callErr = s.complete(ctx, imageBase64)
		return callErr
	})
	s.metrics.OCRLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome, warning := classify(err)
		s.metrics.OCRRequests.WithLabelValues(outcome).Inc()
		s.log.Error(err, "prescription scan failed", "outcome", outcome)
		return fallback(warning), nil
	}

	extraction := parseContent(content)
	s.cache.SetDefault(key, *extraction)
	s.metrics.OCRRequests.WithLabelValues("success").Inc()
	return extraction, nil
}

func classify(err error) (outcome, warning string) {
	var gwErr *gatewayError
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		return "breaker_open", "Prescription scanning is temporarily unavailable. Please enter medications manually."
	case errors.As(err, &gwErr) && gwErr.status == http.StatusTooManyRequests:
		return "rate_limited", "Rate limit exceeded. Please try again later."
	case errors.As(err, &gwErr) && gwErr.status == http.StatusPaymentRequired:
		return "payment_required", "Payment required. Please add funds to continue."
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", "Prescription scan timed out. Please enter medications manually."
	default:
		return "error", "Failed to scan prescription. Please enter medications manually."
	}
}

func fallback(warning string) *model.Extraction {
	return &model.Extraction{
		Medications:       []model.ExtractedMedication{},
		PrescriptionTitle: fallbackTitle,
		Warning:           warning,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func dataURL(image string) string {
	if strings.HasPrefix(image, "data:") {
		return image
	}
	return "data:image/jpeg;base64," + image
}

func (s *Service) complete(ctx context.Context, image string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userInstruction},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(image)}},
			}},
		},
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &gatewayError{status: resp.StatusCode, body: string(data)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", errors.New("no response from ocr gateway")
	}
	return parsed.Choices[0].Message.Content, nil
}

type gatewayExtraction struct {
	Medications       []model.ExtractedMedication `json:"medications"`
	PrescriptionTitle string                      `json:"prescriptionTitle"`
	AdditionalNotes   string                      `json:"additionalNotes"`
}

// parseContent reads the model's JSON answer, tolerating markdown fences.
// Anything unparseable is passed back as notes.
func parseContent(content string) *model.Extraction {
	cleaned := strings.ReplaceAll(content, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var out gatewayExtraction
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return &model.Extraction{
			Medications:       []model.ExtractedMedication{},
			PrescriptionTitle: unparsedTitle,
			AdditionalNotes:   content,
		}
	}
	if out.Medications == nil {
		out.Medications = []model.ExtractedMedication{}
	}
	if out.PrescriptionTitle == "" {
		out.PrescriptionTitle = fallbackTitle
	}
	return &model.Extraction{
		Medications:       out.Medications,
		PrescriptionTitle: out.PrescriptionTitle,
		AdditionalNotes:   out.AdditionalNotes,
	}
}
