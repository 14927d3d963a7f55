package payment

import (
	"context"

	"merchant-checkout/internal/logger"

	"go.uber.org/zap"
)

// Service exposes the fire-and-forget payout and refund triggers. Nothing
// is recorded locally; completion is only observable through the gateway.
type Service interface {
	Payout(ctx context.Context, paymentID string) (*Ack, error)
	Refund(ctx context.Context, paymentID string) (*Ack, error)
}

type service struct {
	gateway Gateway
}

func NewService(gateway Gateway) Service {
	return &service{gateway: gateway}
}

func (s *service) Payout(ctx context.Context, paymentID string) (*Ack, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Payout"),
		zap.String("payment_id", paymentID),
	)

	token, err := s.gateway.Login(ctx)
	if err != nil {
		log.Error("gateway login failed", zap.Error(err))
		return nil, err
	}

	ack, err := s.gateway.Payout(ctx, token, paymentID)
	if err != nil {
		log.Warn("payout rejected", zap.Error(err))
		return nil, err
	}

	log.Info("payout requested", zap.Int("status", ack.StatusCode))
	return ack, nil
}

func (s *service) Refund(ctx context.Context, paymentID string) (*Ack, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Refund"),
		zap.String("payment_id", paymentID),
	)

	token, err := s.gateway.Login(ctx)
	if err != nil {
		log.Error("gateway login failed", zap.Error(err))
		return nil, err
	}

	ack, err := s.gateway.Refund(ctx, token, paymentID)
	if err != nil {
		log.Warn("refund rejected", zap.Error(err))
		return nil, err
	}

	log.Info("refund requested", zap.Int("status", ack.StatusCode))
	return ack, nil
}
