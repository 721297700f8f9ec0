package credentials

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/smtp"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-errors"
)

// Notification is a rendered-template message bound for an account holder.
// Data feeds the template; for activation and reset messages it carries the
// signed token and the short code.
type Notification struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

// Notifier delivers notifications produced by the activation and reset flows.
type Notifier interface {
	Notify(ctx context.Context, msg Notification) error
}

// TemplateRenderer renders notification bodies from the embedded templates.
type TemplateRenderer struct {
	engine *django.Engine
}

// NewTemplateRenderer loads the packaged notification templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	engine := django.NewFileSystem(http.FS(GetTemplatesFS()), ".html")
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load notification templates")
	}
	return &TemplateRenderer{engine: engine}, nil
}

// Render executes the named template with the notification data.
func (r *TemplateRenderer) Render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, data); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to render notification template").
			WithMetadata(map[string]any{"template": name})
	}
	return buf.String(), nil
}

// LogNotifier writes notifications to the logger instead of delivering them.
// Default in development and in tests.
type LogNotifier struct {
	logger Logger
}

func NewLogNotifier(logger Logger) *LogNotifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Notification) error {
	n.logger.Info("notification to=%s subject=%q template=%s data=%v", msg.To, msg.Subject, msg.Template, msg.Data)
	return nil
}

var _ Notifier = (*LogNotifier)(nil)

// SMTPConfig holds the delivery options for SMTPNotifier.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c SMTPConfig) validate() error {
	if c.Host == "" || c.Port == "" || c.From == "" {
		return errors.New("invalid smtp configuration", errors.CategoryBadInput)
	}
	return nil
}

// SMTPNotifier renders the notification template and delivers it over SMTP.
type SMTPNotifier struct {
	config   SMTPConfig
	renderer *TemplateRenderer
	logger   Logger
}

var _ Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(config SMTPConfig, renderer *TemplateRenderer) (*SMTPNotifier, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	if renderer == nil {
		var err error
		if renderer, err = NewTemplateRenderer(); err != nil {
			return nil, err
		}
	}

	return &SMTPNotifier{
		config:   config,
		renderer: renderer,
		logger:   defLogger{},
	}, nil
}

func (n *SMTPNotifier) WithLogger(logger Logger) *SMTPNotifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

// Notify renders the template and sends the message. Delivery failures come
// back as ErrNotificationFailed so callers can roll the surrounding
// transaction back and no account state outlives an unsent message.
func (n *SMTPNotifier) Notify(_ context.Context, msg Notification) error {
	body, err := n.renderer.Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}

	payload := []byte(fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		msg.To, n.config.From, msg.Subject, body,
	))

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	addr := fmt.Sprintf("%s:%s", n.config.Host, n.config.Port)
	if err := smtp.SendMail(addr, auth, n.config.From, []string{msg.To}, payload); err != nil {
		n.logger.Error("SMTPNotifier delivery failed", "to", msg.To, "error", err)
		return errors.Wrap(err, ErrNotificationFailed.Category, ErrNotificationFailed.Message).
			WithTextCode(TextCodeNotifyFailed).
			WithMetadata(map[string]any{"to": msg.To})
	}

	return nil
}
