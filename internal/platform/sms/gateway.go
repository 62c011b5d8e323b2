package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/voltlab/voltlab-api/internal/config"
	"github.com/voltlab/voltlab-api/internal/domain"
	"github.com/voltlab/voltlab-api/internal/verification"
)

// GatewaySender sends codes through an HTTP SMS gateway.
type GatewaySender struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure GatewaySender implements Sender interface
var _ Sender = (*GatewaySender)(nil)

// NewGatewaySender creates a sender for the configured SMS gateway.
// If logger is nil, a default logger will be used.
func NewGatewaySender(cfg config.SMSConfig, logger *slog.Logger) *GatewaySender {
	if logger == nil {
		logger = slog.Default()
	}
	return &GatewaySender{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With(slog.String("component", "sms")),
	}
}

type gatewayRequest struct {
	PhoneNumber  string `json:"phone_number"`
	SignName     string `json:"sign_name"`
	TemplateCode string `json:"template_code"`
	Code         string `json:"code"`
}

// Send implements the Sender interface.
func (s *GatewaySender) Send(ctx context.Context, phoneNumber, code string, scene verification.Scene) error {
	template, err := s.templateFor(scene)
	if err != nil {
		return err
	}

	body, err := json.Marshal(gatewayRequest{
		PhoneNumber:  phoneNumber,
		SignName:     s.cfg.SignName,
		TemplateCode: template,
		Code:         code,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.cfg.GatewayURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.ErrorContext(ctx, "sms gateway request failed",
			"error", err,
			"phone", domain.MaskPhoneNumber(phoneNumber),
			"scene", string(scene))
		return fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.logger.ErrorContext(ctx, "sms gateway returned non-OK status",
			"status", resp.StatusCode,
			"phone", domain.MaskPhoneNumber(phoneNumber),
			"scene", string(scene))
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	s.logger.InfoContext(ctx, "verification code sent",
		"phone", domain.MaskPhoneNumber(phoneNumber),
		"scene", string(scene))
	return nil
}

func (s *GatewaySender) templateFor(scene verification.Scene) (string, error) {
	switch scene {
	case verification.SceneRegister:
		return s.cfg.TemplateRegister, nil
	case verification.SceneResetPassword:
		return s.cfg.TemplateResetPassword, nil
	default:
		return "", fmt.Errorf("no sms template for scene %q", scene)
	}
}
