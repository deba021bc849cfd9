package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/example/teetime-scheduler/internal/teetime"
)

// Mailer delivers one message. The production implementation is SMTP; tests
// substitute a fake.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends through a gmail-style SMTP relay.
type SMTPMailer struct {
	Host string
	Port int
	User string
	Pass string
}

func (m SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.User)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return gomail.NewDialer(m.Host, m.Port, m.User, m.Pass).DialAndSend(msg)
}

// Notifier formats and sends outcome notifications to the fixed recipient.
// Delivery is best-effort: failures are logged, never raised, so a booked
// run is still a booked run when the mail relay is down.
type Notifier struct {
	Mailer Mailer
	To     string
	Course string
	League string
	Log    *zap.Logger
}

// Notify sends the message for an outcome and reports whether delivery
// succeeded.
func (n *Notifier) Notify(o teetime.Outcome) bool {
	subject, body := n.message(o)
	if err := n.Mailer.Send(n.To, subject, body); err != nil {
		n.Log.Warn("notification delivery failed",
			zap.String("subject", subject), zap.Error(err))
		return false
	}
	n.Log.Info("notification sent", zap.String("subject", subject))
	return true
}

func (n *Notifier) message(o teetime.Outcome) (subject, body string) {
	switch o.Status {
	case teetime.StatusBooked:
		b := o.Booking
		return fmt.Sprintf("%s Golf Booking Confirmed", n.Course), fmt.Sprintf(`
<h2>Golf Booking Confirmed!</h2>
<p><strong>Date:</strong> %s</p>
<p><strong>Time:</strong> %s</p>
<p><strong>Players:</strong> %d</p>
<p><strong>Holes:</strong> %d</p>
<p><strong>Cart:</strong> %s</p>
<p><strong>League:</strong> %s</p>`,
			b.Date, b.Time, b.Players, b.Holes, b.CartType, n.League)
	case teetime.StatusNoMatch:
		return fmt.Sprintf("%s Golf Booking - No Preferred Times Available", n.Course), fmt.Sprintf(`
<h2>Golf Booking Update</h2>
<p>No preferred time slots were available.</p>
<p><strong>Date Checked:</strong> %s</p>`,
			o.Date)
	default:
		return fmt.Sprintf("%s Golf Booking - Error", n.Course), fmt.Sprintf(`
<h2>Golf Booking Error</h2>
<p>Error: %s</p>
<p><strong>Date:</strong> %s</p>
<p>Time: %s</p>`,
			o.ErrorDetail, o.Date, time.Now().Format(time.RFC1123))
	}
}

// ValidateGmailCreds checks credential shape before any send is attempted: a
// gmail address and a 16 lowercase-letter app password.
func ValidateGmailCreds(user, pass string) error {
	if user == "" || pass == "" {
		return errors.New("email credentials not configured")
	}
	if !strings.HasSuffix(user, "@gmail.com") {
		return errors.Newf("invalid email %q: want a gmail address", user)
	}
	if len(pass) != 16 {
		return errors.Newf("invalid app password: got %d characters, want 16", len(pass))
	}
	for _, r := range pass {
		if r < 'a' || r > 'z' {
			return errors.New("invalid app password: want 16 lowercase letters")
		}
	}
	return nil
}
