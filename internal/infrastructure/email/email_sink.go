package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/tenant-governance/go/internal/core/domain/notification"
)

// EmailConfig holds email sink configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	// OpsEmail receives every alert, and is the only recipient when a tenant has no admin contact.
	OpsEmail string
}

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// EmailSink delivers governance alerts through SendGrid.
type EmailSink struct {
	config    *EmailConfig
	logger    *logrus.Logger
	client    mailClient
	templates map[notification.Kind]*template.Template
}

func NewEmailSink(config *EmailConfig, logger *logrus.Logger) *EmailSink {
	return NewEmailSinkWithClient(config, sendgrid.NewSendClient(config.SendGridAPIKey), logger)
}

// NewEmailSinkWithClient is NewEmailSink with an injected client.
func NewEmailSinkWithClient(config *EmailConfig, client mailClient, logger *logrus.Logger) *EmailSink {
	return &EmailSink{config: config, logger: logger, client: client, templates: loadTemplates()}
}

const alertBody = `<p>{{.Headline}}</p>
<p>Tenant: <b>{{.TenantID}}</b><br>Time: {{.Timestamp}}</p>
<ul>{{range .Details}}<li>{{.}}</li>{{end}}</ul>`

var headlines = map[notification.Kind]string{
	notification.KindRateLimit:      "A request quota window has been exhausted. Further requests in this window are throttled.",
	notification.KindBudgetWarning:  "Spend has crossed the budget alert threshold.",
	notification.KindBudgetExceeded: "Spend has reached the monthly budget limit.",
}

func loadTemplates() map[notification.Kind]*template.Template {
	templates := make(map[notification.Kind]*template.Template, len(headlines))
	for kind := range headlines {
		templates[kind] = template.Must(template.New(string(kind)).Parse(alertBody))
	}
	return templates
}

type alertData struct {
	Headline  string
	TenantID  string
	Timestamp string
	Details   []string
}

func subjectFor(ev *notification.Event) string {
	switch ev.Kind {
	case notification.KindRateLimit:
		return fmt.Sprintf("[%s] Rate limit reached", ev.TenantID)
	case notification.KindBudgetWarning:
		return fmt.Sprintf("[%s] Budget alert threshold crossed", ev.TenantID)
	case notification.KindBudgetExceeded:
		return fmt.Sprintf("[%s] Monthly budget exceeded", ev.TenantID)
	default:
		return fmt.Sprintf("[%s] Governance alert", ev.TenantID)
	}
}

// Send renders and sends one alert. Events with no recipient at all are skipped.
func (e *EmailSink) Send(ctx context.Context, ev *notification.Event) error {
	to := ev.Recipient
	if to == "" {
		to = e.config.OpsEmail
	}
	if to == "" {
		e.logger.WithFields(logrus.Fields{"tenant_id": ev.TenantID, "kind": string(ev.Kind)}).Debug("no alert recipient configured, skipping email")
		return nil
	}
	htmlContent, err := e.renderTemplate(ev)
	if err != nil {
		return err
	}

	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	message := mail.NewSingleEmail(from, subjectFor(ev), mail.NewEmail("", to), "", htmlContent)
	if ops := e.config.OpsEmail; ops != "" && !strings.EqualFold(ops, to) && len(message.Personalizations) > 0 {
		message.Personalizations[0].AddCCs(mail.NewEmail("", ops))
	}

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("failed to send alert email: sendgrid status %d", response.StatusCode)
	}

	e.logger.WithFields(logrus.Fields{
		"to":          to,
		"tenant_id":   ev.TenantID,
		"kind":        string(ev.Kind),
		"status_code": response.StatusCode,
	}).Info("Alert email sent")
	return nil
}

func (e *EmailSink) renderTemplate(ev *notification.Event) (string, error) {
	tmpl, exists := e.templates[ev.Kind]
	if !exists {
		return "", fmt.Errorf("no template for alert kind %s", ev.Kind)
	}
	details := make([]string, 0, len(ev.Detail))
	for k, v := range ev.Detail {
		details = append(details, fmt.Sprintf("%s: %v", k, v))
	}
	sort.Strings(details)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, alertData{
		Headline:  headlines[ev.Kind],
		TenantID:  ev.TenantID,
		Timestamp: ev.Timestamp.Format("2006-01-02 15:04:05 MST"),
		Details:   details,
	}); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", ev.Kind, err)
	}
	return buf.String(), nil
}
