package infra

import (
	"errors"
	"fmt"
	"net/smtp"

	"despensa/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailerDeshabilitado is returned when SMTP_HOST or the recipient is not configured.
var ErrMailerDeshabilitado = errors.New("mailer: smtp no configurado")

// Mailer wraps SMTP configuration for operational notifications.
type Mailer struct {
	host     string
	port     int
	user     string
	password string
	addr     string
	alertas  string
	comercio string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		alertas:  cfg.AlertasEmail,
		comercio: cfg.NombreComercio,
	}
}

// Habilitado reports whether alerts can be delivered at all.
func (m *Mailer) Habilitado() bool {
	return m.host != "" && m.alertas != ""
}

// SendAlertaStock mails a low-stock notice to ALERTAS_EMAIL.
func (m *Mailer) SendAlertaStock(producto string, sucursal string, cantidad, minimo int) error {
	if !m.Habilitado() {
		return ErrMailerDeshabilitado
	}
	if sucursal == "" {
		sucursal = "global"
	}

	e := email.NewEmail()
	e.From = m.user
	e.To = []string{m.alertas}
	e.Subject = fmt.Sprintf("[%s] Stock bajo: %s", m.comercio, producto)
	e.Text = []byte(fmt.Sprintf(
		"El producto %s (sucursal %s) quedó con %d unidades; el mínimo configurado es %d.\n",
		producto, sucursal, cantidad, minimo,
	))

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
