package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPOtpMailer posts one-time codes to the email-dispatch endpoint.
type HTTPOtpMailer struct {
	URL    string
	Client *http.Client
}

type otpMailPayload struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (m *HTTPOtpMailer) SendOtp(ctx context.Context, email, code string) error {
	data, err := json.Marshal(otpMailPayload{Email: email, OTP: code})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client().Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("otp dispatch returned %s", resp.Status)
	}
	return nil
}

func (m *HTTPOtpMailer) client() *http.Client {
	if m.Client != nil {
		return m.Client
	}
	return http.DefaultClient
}
