package utils

import (
	"fmt"
	"os"

	"github.com/mailjet/mailjet-apiv3-go/v4"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer sends operator alerts for anomalies that are never
// auto-retried. Mailjet is the primary channel; plain SMTP is the
// fallback when Mailjet keys are missing or sending fails.
type Mailer struct {
	From string
	To   string
}

func NewMailer(from, to string) *Mailer {
	return &Mailer{From: from, To: to}
}

// BatchAnomaly reports a withdrawal batch that the network accepted
// while returning a malformed transaction id.
func (m *Mailer) BatchAnomaly(batchID, txID string) {
	subject := fmt.Sprintf("Settlement anomaly: batch %s", batchID)
	body := fmt.Sprintf(`<body style="margin:0;padding:0;">
  <h2 style="font-family:Arial,sans-serif;">Withdrawal batch flagged SYS_ERROR</h2>
  <p style="font-family:Arial,sans-serif;">The network reported success for batch <b>%s</b> but returned a malformed transaction id:</p>
  <pre>%s</pre>
  <p style="font-family:Arial,sans-serif;">The batch was not retried. Reconcile against the network explorer before re-crediting.</p>
</body>`, batchID, txID)
	m.send(subject, body)
}

// TransferAnomaly reports a reserve rebalancing transfer with an
// invalid transaction id.
func (m *Mailer) TransferAnomaly(txID string, amount int64) {
	subject := "Settlement anomaly: reserve transfer"
	body := fmt.Sprintf(`<body style="margin:0;padding:0;">
  <h2 style="font-family:Arial,sans-serif;">Reserve transfer returned a malformed transaction id</h2>
  <p style="font-family:Arial,sans-serif;">Amount: <b>%d</b> clicks</p>
  <pre>%s</pre>
  <p style="font-family:Arial,sans-serif;">Verify whether the transfer landed before triggering another rebalance.</p>
</body>`, amount, txID)
	m.send(subject, body)
}

func (m *Mailer) send(subject, body string) {
	apiKey := os.Getenv("MAILJET_API_KEY")
	secretKey := os.Getenv("MAILJET_SECRET_KEY")
	if apiKey != "" && secretKey != "" {
		mj := mailjet.NewMailjetClient(apiKey, secretKey)
		messages := &mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{
			{
				From:     &mailjet.RecipientV31{Email: m.From, Name: "Settlement Engine"},
				To:       &mailjet.RecipientsV31{{Email: m.To, Name: "Operator"}},
				Subject:  subject,
				HTMLPart: body,
			},
		}}
		if _, err := mj.SendMailV31(messages); err == nil {
			return
		} else {
			logrus.Errorf("mailjet send failed, falling back to SMTP: %v", err)
		}
	}

	password := os.Getenv("SMTP_APP_PASSWORD")
	if password == "" {
		logrus.Error("no mail channel configured, anomaly alert not delivered: " + subject)
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer("smtp.gmail.com", 587, m.From, password)
	if err := d.DialAndSend(msg); err != nil {
		logrus.Errorf("failed to send anomaly alert: %v", err)
	}
}
