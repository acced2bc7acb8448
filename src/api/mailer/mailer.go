package mailer

import (
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"net/smtp"
	"strings"
)

// Sender delivers verification codes. Satisfied by Mailer; the workflow
// takes the interface so tests can substitute a fake.
type Sender interface {
	IssueCode(email string) (string, error)
}

// Mailer sends 4-digit verification codes over SMTP with implicit TLS.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func New(host, port, user, pass, from string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, from: from}
}

// newCode returns a uniform 4-digit code in [1000, 9999]. This is
// lightweight anti-bot friction, not an authentication credential, so
// math/rand is sufficient.
func newCode() string {
	return fmt.Sprintf("%d", 1000+rand.Intn(9000))
}

// IssueCode generates a code and attempts delivery. On any delivery
// failure the code is discarded and an error returned; the caller keeps
// the session on its current step so the user may retry.
func (m *Mailer) IssueCode(email string) (string, error) {
	code := newCode()

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + email,
		"Subject: Verification Code - The 80% Pledge",
		"",
		"Your 80% Pledge verification code is: " + code,
	}, "\r\n")

	if err := m.send(email, msg); err != nil {
		return "", err
	}
	return code, nil
}

func (m *Mailer) send(to, msg string) error {
	addr := net.JoinHostPort(m.host, m.port)

	// Port 465 is SMTP over implicit TLS; smtp.Dial would expect STARTTLS.
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return err
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if err := c.Auth(smtp.PlainAuth("", m.user, m.pass, m.host)); err != nil {
		return err
	}
	if err := c.Mail(m.user); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
