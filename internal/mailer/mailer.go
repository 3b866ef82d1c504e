package mailer

import (
	"bytes"
	"fmt"
	"io"
	"net/smtp"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"github.com/admintrivedigroup/DKTASKMANAGER-sub000/internal/domain"
)

// SMTPMailer sends the due-date-request heads-up mail. Callers treat it
// as fire-and-forget; a delivery failure is theirs to log, never to
// propagate.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func New(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendDueDateRequest(task *domain.Task, requester *domain.User, proposed time.Time, reason string, recipients []domain.User) error {
	if len(recipients) == 0 {
		return nil
	}

	to := make([]*gomail.Address, 0, len(recipients))
	rcpts := make([]string, 0, len(recipients))
	for _, u := range recipients {
		to = append(to, &gomail.Address{Name: u.DisplayName, Address: u.Email})
		rcpts = append(rcpts, u.Email)
	}

	var h gomail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*gomail.Address{{Address: m.from}})
	h.SetAddressList("To", to)
	h.SetSubject(fmt.Sprintf("Due date extension requested: %s", task.Title))

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return fmt.Errorf("building mail: %w", err)
	}
	body := fmt.Sprintf(
		"%s requested to move the due date of %q to %s.\n\nReason: %s\n",
		requester.DisplayName, task.Title, proposed.Format("2006-01-02"), reason,
	)
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return fmt.Errorf("building mail: %w", err)
	}
	w.Close()

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, rcpts, buf.Bytes()); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}
