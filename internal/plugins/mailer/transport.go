package mailer

import (
	"crypto/tls"
	"fmt"
	"net"
	gosmtp "net/smtp"
	"time"

	"github.com/eventribe/eventribe/internal/apperror"
)

const dialTimeout = 10 * time.Second

// sendStartTLS delivers via STARTTLS (typically port 587).
func sendStartTLS(addr, host, username, password, from string, to []string, msg string) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(tlsClientConfig(host)); err != nil {
		return fmt.Errorf("starting TLS: %w", err)
	}

	if err := authenticate(client, host, username, password); err != nil {
		return err
	}
	return transmit(client, from, to, msg)
}

// sendTLS delivers via implicit TLS (typically port 465).
func sendTLS(addr, host, username, password, from string, to []string, msg string) error {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: dialTimeout}, "tcp", addr, tlsClientConfig(host))
	if err != nil {
		return fmt.Errorf("connecting to %s (TLS): %w", addr, err)
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if err := authenticate(client, host, username, password); err != nil {
		return err
	}
	return transmit(client, from, to, msg)
}

// sendPlain delivers without transport encryption.
func sendPlain(addr, host, username, password, from string, to []string, msg string) error {
	var auth gosmtp.Auth
	if username != "" {
		auth = gosmtp.PlainAuth("", username, password, host)
	}
	if err := gosmtp.SendMail(addr, auth, from, to, []byte(msg)); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

// transmit runs MAIL FROM, RCPT TO, DATA on an established client.
func transmit(client *gosmtp.Client, from string, to []string, msg string) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", recipient, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

func authenticate(client *gosmtp.Client, host, username, password string) error {
	if username == "" {
		return nil
	}
	auth := gosmtp.PlainAuth("", username, password, host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	return nil
}

func tlsClientConfig(host string) *tls.Config {
	return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
}

// testStartTLS probes connectivity with optional STARTTLS. Failures come
// back as bad-request errors carrying the reason for the admin UI.
func testStartTLS(addr, host, username, password string, useTLS bool) error {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return apperror.NewBadRequest(fmt.Sprintf("could not connect to %s: %v", addr, err))
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		return apperror.NewBadRequest(fmt.Sprintf("SMTP handshake failed: %v", err))
	}
	defer client.Close()

	if useTLS {
		if err := client.StartTLS(tlsClientConfig(host)); err != nil {
			return apperror.NewBadRequest(fmt.Sprintf("STARTTLS failed: %v", err))
		}
	}

	if username != "" {
		if err := client.Auth(gosmtp.PlainAuth("", username, password, host)); err != nil {
			return apperror.NewBadRequest(fmt.Sprintf("authentication failed: %v", err))
		}
	}
	return client.Quit()
}

// testTLS probes connectivity over implicit TLS.
func testTLS(addr, host, username, password string) error {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: dialTimeout}, "tcp", addr, tlsClientConfig(host))
	if err != nil {
		return apperror.NewBadRequest(fmt.Sprintf("could not connect to %s (TLS): %v", addr, err))
	}
	defer conn.Close()

	client, err := gosmtp.NewClient(conn, host)
	if err != nil {
		return apperror.NewBadRequest(fmt.Sprintf("SMTP handshake failed: %v", err))
	}
	defer client.Close()

	if username != "" {
		if err := client.Auth(gosmtp.PlainAuth("", username, password, host)); err != nil {
			return apperror.NewBadRequest(fmt.Sprintf("authentication failed: %v", err))
		}
	}
	return client.Quit()
}
