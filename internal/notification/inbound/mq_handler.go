package inbound

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cID := msg.Header(keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) OTPIssuedNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPIssuedNotification")
	defer span.End()

	var payload event.OTPIssuedMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		// the code field is secret, so the body is not logged
		slog.ErrorContext(ctx, "failed to parse message body of otp issued notification", "size", len(msg.Body()), "error", err)
		return nil
	}

	slog.InfoContext(ctx, "consume: otp issued notification", "otp_id", payload.OTPID, "type", payload.Type)

	if err := h.uc.ConsumeOTPIssued(ctx, usecase.ConsumeOTPIssuedInput{
		OTPID:     payload.OTPID,
		Email:     payload.Email,
		Type:      payload.Type,
		Code:      payload.Code,
		ExpiresAt: time.Unix(payload.ExpiresAt, 0).UTC(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp issued", "otp_id", payload.OTPID, "error", err)
		return err
	}

	return nil
}
