package notify

import (
	"context"
	"time"
)

// Kind names a notification template.
type Kind string

const (
	KindVerification      Kind = "verification"
	KindWelcome           Kind = "welcome"
	KindPasswordReset     Kind = "password_reset"
	KindProjectInvitation Kind = "project_invitation"
)

// Notifier delivers account lifecycle emails. Callers treat every method as
// fire-and-forget: an error is logged, never propagated to the end user.
type Notifier interface {
	SendVerification(ctx context.Context, to, token string) error
	SendWelcome(ctx context.Context, to, firstName string) error
	SendPasswordReset(ctx context.Context, to, token string) error
	SendProjectInvitation(ctx context.Context, to, key string, expiresAt time.Time) error
}

// Message is a fully rendered email.
type Message struct {
	Kind    Kind   `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// mailer adapts a Renderer plus a delivery func to the Notifier interface.
type mailer struct {
	renderer *Renderer
	deliver  func(ctx context.Context, msg Message) error
}

func (m mailer) SendVerification(ctx context.Context, to, token string) error {
	msg, err := m.renderer.Verification(to, token)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m mailer) SendWelcome(ctx context.Context, to, firstName string) error {
	msg, err := m.renderer.Welcome(to, firstName)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	msg, err := m.renderer.PasswordReset(to, token)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m mailer) SendProjectInvitation(ctx context.Context, to, key string, expiresAt time.Time) error {
	msg, err := m.renderer.ProjectInvitation(to, key, expiresAt)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}
