package gate

import (
	"meetgate/internal/action"
	"meetgate/internal/dataType"
	"strings"
)

// Evaluate is the authorization evaluator: a pure function of the two
// context pieces. Until both are present the result is Loading; the VPN
// check takes precedence over the city match. An empty or missing cities
// list means no city is ever allowed.
func Evaluate(meeting *dataType.MeetingConfig, location *dataType.LocationSignal) action.AuthState {
	if meeting == nil || location == nil {
		return action.Loading
	}

	if location.VPNDetected {
		return action.VpnBlocked
	}

	normalizedUserCity := strings.ToLower(strings.TrimSpace(location.City))
	for _, c := range meeting.Cities {
		if strings.ToLower(strings.TrimSpace(c)) == normalizedUserCity {
			return action.Authorized
		}
	}
	return action.PendingRequest
}
