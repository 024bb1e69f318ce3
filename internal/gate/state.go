package gate

import (
	"meetgate/internal/action"
	"meetgate/internal/dataType"
	"sync"
)

// Gate owns the access-control state for one (session, meeting) pair. All
// mutation goes through its methods; the two context fetches write back
// under the lock, so the state is safe to read while they are in flight.
type Gate struct {
	mu        sync.Mutex
	meetingID string
	meeting   *dataType.MeetingConfig
	location  *dataType.LocationSignal
	info      dataType.RequestInfo
	otp       dataType.OtpState
	override  bool
	dismissed bool
	loadOnce  sync.Once
}

func New(meetingID string) *Gate {
	return &Gate{meetingID: meetingID}
}

func (g *Gate) MeetingID() string {
	return g.meetingID
}

// State derives the current authorization state. The override applied after
// a successful access request wins over the evaluator; everything else is
// recomputed from the context pieces on every call.
func (g *Gate) State() action.AuthState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.override {
		return action.AuthorizedByOverride
	}
	return Evaluate(g.meeting, g.location)
}

// Location returns the stored location signal, if resolved.
func (g *Gate) Location() (dataType.LocationSignal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.location == nil {
		return dataType.LocationSignal{}, false
	}
	return *g.location, true
}

// OtpSent reports whether the last issued code was dispatched successfully.
// The renderer switches the primary button label on it.
func (g *Gate) OtpSent() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.otp.SentFlag
}

// Dismiss hides the request form. It does not change the authorization
// state: a dismissed unauthorized session still cannot reach the call view.
func (g *Gate) Dismiss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dismissed = true
}

func (g *Gate) Dismissed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dismissed
}
