package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatusIsTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.False(t, PaymentStatusProcessing.IsTerminal())
	assert.True(t, PaymentStatusCompleted.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
	assert.True(t, PaymentStatusRefunded.IsTerminal())
}

func TestAmountInPaise(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		paise  int64
	}{
		{"Whole Rupees", 499.0, 49900},
		{"With Paise", 499.50, 49950},
		{"Rounds Up", 10.999, 1100},
		{"Rounds Down", 10.001, 1000},
		{"Float Representation", 19.99, 1999},
		{"Zero", 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payment := &Payment{Amount: tc.amount}
			assert.Equal(t, tc.paise, payment.AmountInPaise())
		})
	}
}

func TestGenerateInvoiceNumber(t *testing.T) {
	invoice := GenerateInvoiceNumber()

	parts := strings.Split(invoice, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "INV", parts[0])
	assert.Len(t, parts[1], 6)
	assert.Len(t, parts[2], 10)

	assert.NotEqual(t, invoice, GenerateInvoiceNumber())
}

func TestWebhookSignatureMarker(t *testing.T) {
	marker := WebhookSignatureMarker()
	assert.True(t, strings.HasPrefix(marker, "webhook_verified_"))
	assert.Greater(t, len(marker), len("webhook_verified_"))
}
