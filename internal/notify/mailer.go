// Package notify sends HTML notifications through the agglomeration mail
// relay.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agglo-acv/demande-service/pkg/logger"
)

// DeliveryError reports a notification that could not be handed to the relay.
// Callers on transition paths log it and carry on; it never aborts the
// transition itself.
type DeliveryError struct {
	Recipient string
	Status    int
	Err       error
	Detail    string
}

func (e *DeliveryError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("envoi du mail à %s: %v", e.Recipient, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("envoi du mail à %s: relais HTTP %d", e.Recipient, e.Status)
	default:
		return fmt.Sprintf("envoi du mail à %s: %s", e.Recipient, e.Detail)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Config holds mailer configuration.
type Config struct {
	// URL is the mail relay endpoint.
	URL     string
	Timeout time.Duration
	// InsecureSkipVerify disables certificate verification on this client
	// only. The relay is an internal host with a self-signed certificate.
	InsecureSkipVerify bool
	HTTPClient         *http.Client
}

// Mailer delivers HTML messages over the relay's HTTP API.
type Mailer struct {
	url        string
	httpClient *http.Client
	log        *logger.Logger
}

// NewMailer creates a mailer for the configured relay.
func NewMailer(cfg Config, log *logger.Logger) (*Mailer, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, fmt.Errorf("mailer URL is required")
	}
	if log == nil {
		log = logger.NewDefault("mailer")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		transport := http.DefaultTransport
		if cfg.InsecureSkipVerify {
			transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
		httpClient = &http.Client{Timeout: timeout, Transport: transport}
	}

	return &Mailer{url: url, httpClient: httpClient, log: log}, nil
}

type mailPayload struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	HTML        string `json:"html"`
	ContentType string `json:"contentType"`
}

// Send posts one HTML message to the relay. It returns the relay's response
// body on success so callers relaying the result can forward it.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) ([]byte, error) {
	return m.SendAs(ctx, to, subject, html, "text/html")
}

// SendAs is Send with an explicit content type.
func (m *Mailer) SendAs(ctx context.Context, to, subject, html, contentType string) ([]byte, error) {
	if to == "" || subject == "" || html == "" {
		return nil, &DeliveryError{
			Recipient: to,
			Detail:    "données d'email incomplètes (to, subject et message sont requis)",
		}
	}
	if contentType == "" {
		contentType = "text/html"
	}

	body, err := json.Marshal(mailPayload{To: to, Subject: subject, HTML: html, ContentType: contentType})
	if err != nil {
		return nil, &DeliveryError{Recipient: to, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return nil, &DeliveryError{Recipient: to, Err: err}
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &DeliveryError{Recipient: to, Err: err}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DeliveryError{Recipient: to, Status: resp.StatusCode, Detail: string(data)}
	}

	m.log.WithField("to", to).WithField("subject", subject).Debug("email envoyé")
	return data, nil
}
