package gate

import (
	"context"
	"fmt"
	"meetgate/internal/dataType"
	"meetgate/internal/utils"
)

// MeetingLookup fetches the allow-list for a meeting id.
type MeetingLookup interface {
	MeetingConfig(ctx context.Context, meetingID string) (*dataType.MeetingConfig, error)
}

// LocationLookup resolves the caller's city and VPN flag.
type LocationLookup interface {
	LocationSignal(ctx context.Context) (*dataType.LocationSignal, error)
}

// LoadContext triggers the two context fetches. They run once per gate, in
// independent goroutines with no ordering guarantee between them; a failed
// fetch is logged and leaves its piece unset, keeping the gate in Loading.
func (g *Gate) LoadContext(ctx context.Context, meetings MeetingLookup, locations LocationLookup, reqData dataType.JoinRequest) {
	g.loadOnce.Do(func() {
		go g.loadMeetingConfig(ctx, meetings, reqData)
		go g.loadLocationSignal(ctx, locations, reqData)
	})
}

func (g *Gate) loadMeetingConfig(ctx context.Context, meetings MeetingLookup, reqData dataType.JoinRequest) {
	meeting, err := meetings.MeetingConfig(ctx, g.meetingID)
	if err != nil {
		utils.LogError(reqData, fmt.Sprintf("Error fetching meeting: %v", err), "loadMeetingConfig")
		return
	}
	g.mu.Lock()
	g.meeting = meeting
	g.mu.Unlock()
}

func (g *Gate) loadLocationSignal(ctx context.Context, locations LocationLookup, reqData dataType.JoinRequest) {
	location, err := locations.LocationSignal(ctx)
	if err != nil {
		utils.LogError(reqData, fmt.Sprintf("Error fetching location: %v", err), "loadLocationSignal")
		return
	}
	g.mu.Lock()
	g.location = location
	g.mu.Unlock()
}
