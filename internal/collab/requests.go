package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"meetgate/internal/dataType"
	"net/http"
)

// HTTPRequestStore persists access requests through the meeting-requests
// endpoint.
type HTTPRequestStore struct {
	URL    string
	Client *http.Client
}

func (s *HTTPRequestStore) CreateRequest(ctx context.Context, rec dataType.AccessRequest) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client().Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request submission returned %s", resp.Status)
	}
	return nil
}

func (s *HTTPRequestStore) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}
