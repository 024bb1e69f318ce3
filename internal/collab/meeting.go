// Package collab holds the clients for the gate's external collaborators:
// meeting lookup, location/VPN lookup, OTP email dispatch, access-request
// persistence and event publication. The gate core only sees interfaces.
package collab

import (
	"context"
	"encoding/json"
	"fmt"
	"meetgate/internal/dataType"
	"net/http"
	"net/url"
)

// HTTPMeetingLookup reads meeting configuration from the meeting API.
// Only the cities field is used; everything else in the payload is ignored.
type HTTPMeetingLookup struct {
	BaseURL string
	Client  *http.Client
}

func (l *HTTPMeetingLookup) MeetingConfig(ctx context.Context, meetingID string) (*dataType.MeetingConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+"?meetingId="+url.QueryEscape(meetingID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meeting lookup returned %s", resp.Status)
	}

	var cfg dataType.MeetingConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("meeting lookup decode: %w", err)
	}
	return &cfg, nil
}

func (l *HTTPMeetingLookup) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return http.DefaultClient
}

func closeBody(resp *http.Response) {
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
}
