package notify

import (
	"testing"

	"github.com/Juan7731/bol.com/config"

	"github.com/stretchr/testify/require"
)

func TestSendSummaryDisabledIsNoOp(t *testing.T) {
	m := NewMailer(config.EmailConfig{Enabled: false})
	require.NoError(t, m.SendSummary(5, []string{"S-001.csv"}))
}

func TestSendSummaryWithoutRecipientsIsNoOp(t *testing.T) {
	m := NewMailer(config.EmailConfig{Enabled: true})
	require.NoError(t, m.SendSummary(5, nil))
}

func TestRenderReplacesPlaceholder(t *testing.T) {
	m := NewMailer(config.EmailConfig{
		SubjectTemplate: "Bol.com orders summary: [total_orders] orders need to be processed",
		BodyTemplate:    "Today, [total_orders] orders need to be processed.",
	})

	subject, body := m.render(12, nil)
	require.Equal(t, "Bol.com orders summary: 12 orders need to be processed", subject)
	require.Equal(t, "Today, 12 orders need to be processed.", body)
}

func TestRenderListsGeneratedFiles(t *testing.T) {
	m := NewMailer(config.EmailConfig{BodyTemplate: "[total_orders] orders."})

	_, body := m.render(3, []string{"/batches/20250314/S-001.csv", "/batches/20250314/M-001.csv"})
	require.Contains(t, body, "Generated files:")
	require.Contains(t, body, "- S-001.csv")
	require.Contains(t, body, "- M-001.csv")
}
