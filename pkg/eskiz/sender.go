package eskiz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	eskizapi "github.com/iota-uz/eskiz"
)

const sendSMSEndpoint = "https://notify.eskiz.uz/api/message/sms/send"

// Sender delivers a single SMS through the Eskiz gateway.
type Sender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type service struct {
	cfg        Config
	refresher  *tokenRefresher
	httpClient *http.Client
}

func NewSender(cfg Config) Sender {
	client := eskizapi.NewAPIClient(eskizapi.NewConfiguration())
	return &service{
		cfg:        cfg,
		refresher:  newTokenRefresher(client, cfg),
		httpClient: http.DefaultClient,
	}
}

func (s *service) SendSMS(ctx context.Context, phone, message string) error {
	token := s.refresher.CurrentToken()
	if token == "" {
		refreshed, err := s.refresher.RefreshToken(ctx)
		if err != nil {
			return fmt.Errorf("eskiz auth failed: %w", err)
		}
		token = refreshed
	}

	status, err := s.post(ctx, token, phone, message)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		// Token expired mid-session; refresh once and retry.
		token, err = s.refresher.RefreshToken(ctx)
		if err != nil {
			return fmt.Errorf("eskiz auth failed: %w", err)
		}
		status, err = s.post(ctx, token, phone, message)
		if err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("eskiz send failed with status %d", status)
	}
	return nil
}

func (s *service) post(ctx context.Context, token, phone, message string) (int, error) {
	form := url.Values{}
	form.Set("mobile_phone", phone)
	form.Set("message", message)
	form.Set("from", s.cfg.Sender())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendSMSEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return resp.StatusCode, nil
}
