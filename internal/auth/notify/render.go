package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// RendererConfig holds the values interpolated into every template.
type RendererConfig struct {
	AppName     string
	AppURL      string // public base URL of this service, for verification links
	FrontendURL string // base URL of the web app, for reset and invitation links
}

// Renderer turns a notification kind plus payload into a Message.
type Renderer struct {
	cfg  RendererConfig
	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewRenderer(cfg RendererConfig) (*Renderer, error) {
	if cfg.AppName == "" {
		cfg.AppName = "Auth Service"
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Renderer{cfg: cfg, text: text, html: html}, nil
}

type templateData struct {
	AppName   string
	Year      int
	Link      string
	FirstName string
	Key       string
	ExpiresAt string
}

func (r *Renderer) Verification(to, token string) (Message, error) {
	link := r.cfg.AppURL + "/v1/auth/verify-email?token=" + url.QueryEscape(token)
	return r.render(KindVerification, to, r.cfg.AppName+" - Verify your email", templateData{Link: link})
}

func (r *Renderer) Welcome(to, firstName string) (Message, error) {
	if firstName == "" {
		firstName = "there"
	}
	return r.render(KindWelcome, to, "Welcome to "+r.cfg.AppName, templateData{FirstName: firstName})
}

func (r *Renderer) PasswordReset(to, token string) (Message, error) {
	link := r.cfg.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
	return r.render(KindPasswordReset, to, r.cfg.AppName+" - Reset your password", templateData{Link: link})
}

func (r *Renderer) ProjectInvitation(to, key string, expiresAt time.Time) (Message, error) {
	return r.render(KindProjectInvitation, to, r.cfg.AppName+" - You're invited to create a project", templateData{
		Link:      r.InvitationLink(key),
		Key:       key,
		ExpiresAt: expiresAt.UTC().Format(time.RFC1123),
	})
}

// InvitationLink is the web app URL that redeems an invitation key.
func (r *Renderer) InvitationLink(key string) string {
	return r.cfg.FrontendURL + "/projects/new?key=" + url.QueryEscape(key)
}

func (r *Renderer) render(kind Kind, to, subject string, data templateData) (Message, error) {
	data.AppName = r.cfg.AppName
	data.Year = time.Now().Year()

	var text, html bytes.Buffer
	if err := r.text.ExecuteTemplate(&text, string(kind)+".txt.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	if err := r.html.ExecuteTemplate(&html, string(kind)+".html.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", kind, err)
	}

	return Message{
		Kind:    kind,
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
