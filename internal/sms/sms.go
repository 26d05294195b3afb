package sms

import (
	"context"

	"github.com/rs/zerolog"
)

// FallbackNumber is used when the recipient has no phone on file.
const FallbackNumber = "+919999999999"

// Service dispatches SMS/WhatsApp messages to an external provider.
// Best-effort: failures are logged and swallowed by the workflow.
type Service interface {
	Send(ctx context.Context, phone, message string) error
}

// simulator logs outbound messages instead of calling a provider. It
// stands in for Twilio/WhatsApp in environments without credentials.
type simulator struct {
	logger *zerolog.Logger
}

func NewSimulator(logger *zerolog.Logger) Service {
	return &simulator{logger: logger}
}

func (s *simulator) Send(_ context.Context, phone, message string) error {
	s.logger.Info().
		Str("provider", "sms-simulator").
		Str("to", phone).
		Str("message", message).
		Msg("outbound SMS")
	return nil
}
