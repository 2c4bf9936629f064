package notify

import (
	"context"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/metrics"
)

type instrumented struct {
	next Notifier
}

// Instrument wraps a Notifier so every send is counted by kind and result.
func Instrument(next Notifier) Notifier {
	return &instrumented{next: next}
}

func observe(kind Kind, err error) error {
	metrics.ObserveNotification(string(kind), metrics.Result(err))
	return err
}

func (n *instrumented) SendVerification(ctx context.Context, to, token string) error {
	return observe(KindVerification, n.next.SendVerification(ctx, to, token))
}

func (n *instrumented) SendWelcome(ctx context.Context, to, firstName string) error {
	return observe(KindWelcome, n.next.SendWelcome(ctx, to, firstName))
}

func (n *instrumented) SendPasswordReset(ctx context.Context, to, token string) error {
	return observe(KindPasswordReset, n.next.SendPasswordReset(ctx, to, token))
}

func (n *instrumented) SendProjectInvitation(ctx context.Context, to, key string, expiresAt time.Time) error {
	return observe(KindProjectInvitation, n.next.SendProjectInvitation(ctx, to, key, expiresAt))
}
