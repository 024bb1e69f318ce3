package dataType

import "time"

const MeetGateVersion = "0.3.1"

// JoinRequest carries the attributes of one join-page request that the
// gate cares about.
type JoinRequest struct {
	RemoteIP  string
	Uri       string
	UserAgent string
	MeetingID string
	SessionID string
}

// MeetingConfig is the allow-list for one meeting id. Immutable once loaded.
type MeetingConfig struct {
	Cities []string `json:"cities"`
}

// LocationSignal is a point-in-time snapshot from the location/VPN lookup.
// Never refreshed automatically.
type LocationSignal struct {
	City        string
	VPNDetected bool
}

// RequestInfo is the user-entered identity claim on the request-access form.
type RequestInfo struct {
	Name        string `json:"name" validate:"required"`
	EmployeeID  string `json:"empid" validate:"required"`
	Designation string `json:"desg" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
}

// OtpState holds the locally issued one-time code. IssuedCode is the single
// source of truth for comparison against the entered code.
type OtpState struct {
	IssuedCode string
	SentFlag   bool
}

// AccessRequest is the durable record persisted when an unauthorized user
// passes OTP verification.
type AccessRequest struct {
	ID          string    `json:"id"`
	MeetingID   string    `json:"meetingId"`
	Name        string    `json:"name"`
	EmployeeID  string    `json:"empid"`
	Designation string    `json:"desg"`
	Email       string    `json:"email"`
	City        string    `json:"city"`
	RemoteIP    string    `json:"remote_ip"`
	UserAgent   string    `json:"user_agent"`
	CreatedAt   time.Time `json:"created_at"`
}

// OTPRule controls the optional failure accounting on OTP verification.
// FailureLimit maps a window in seconds to the max mismatches allowed inside
// it. An empty map means unbounded retries.
type OTPRule struct {
	Enabled      bool
	FailureLimit map[int64]int64
}

type SharedMemory struct {
	OTPIssueCounter   *Counter
	OTPFailureCounter *Counter
}
