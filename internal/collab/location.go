package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"meetgate/internal/dataType"
	"net/http"
	"strings"
)

// HTTPLocationLookup calls the third-party location/VPN service. Best-effort
// signal, no auth. The raw vpn field is normalized here: "yes" means
// detected, anything else means not.
type HTTPLocationLookup struct {
	URL    string
	Client *http.Client
}

type locationResponse struct {
	City string `json:"city"`
	VPN  string `json:"vpn"`
}

func (l *HTTPLocationLookup) LocationSignal(ctx context.Context) (*dataType.LocationSignal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("location lookup returned %s", resp.Status)
	}

	var body locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("location lookup decode: %w", err)
	}

	return &dataType.LocationSignal{
		City:        strings.TrimSpace(body.City),
		VPNDetected: body.VPN == "yes",
	}, nil
}

func (l *HTTPLocationLookup) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return http.DefaultClient
}
