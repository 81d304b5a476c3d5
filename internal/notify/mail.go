// Package notify sends the end-of-run summary email.
package notify

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"

	"github.com/Juan7731/bol.com/config"
)

// totalOrdersPlaceholder is replaced in subject and body templates.
const totalOrdersPlaceholder = "[total_orders]"

// Mailer sends run summaries over SMTP.
type Mailer struct {
	cfg config.EmailConfig
}

// NewMailer creates a mailer from configuration.
func NewMailer(cfg config.EmailConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendSummary emails the processed order count and generated filenames
// to the configured recipients. Disabled or misconfigured mail is a
// logged no-op, not an error.
func (m *Mailer) SendSummary(totalOrders int, filePaths []string) error {
	if !m.cfg.Enabled {
		log.Info().Msg("Email sending disabled in configuration")
		return nil
	}
	if len(m.cfg.Recipients) == 0 {
		log.Warn().Msg("Email enabled but no recipients configured")
		return nil
	}

	subject, body := m.render(totalOrders, filePaths)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.Recipients...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.Username, m.cfg.Password)
	// Port 465 speaks SSL from the first byte; other ports use STARTTLS.
	dialer.SSL = m.cfg.SMTPPort == 465

	log.Info().Strs("recipients", m.cfg.Recipients).Msg("Sending summary email")
	if err := dialer.DialAndSend(msg); err != nil {
		return errors.Wrap(err, "failed to send summary email")
	}

	log.Info().Msg("Summary email sent")
	return nil
}

// render fills the subject and body templates and appends the list of
// generated files.
func (m *Mailer) render(totalOrders int, filePaths []string) (subject, body string) {
	count := strconv.Itoa(totalOrders)
	subject = strings.ReplaceAll(m.cfg.SubjectTemplate, totalOrdersPlaceholder, count)
	body = strings.ReplaceAll(m.cfg.BodyTemplate, totalOrdersPlaceholder, count)

	if len(filePaths) > 0 {
		var b strings.Builder
		b.WriteString(body)
		b.WriteString("\n\nGenerated files:\n")
		for _, path := range filePaths {
			fmt.Fprintf(&b, "- %s\n", filepath.Base(path))
		}
		body = b.String()
	}
	return subject, body
}
