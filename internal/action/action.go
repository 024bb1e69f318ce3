package action

// AuthState is the authorization decision for one (session, meeting) pair.
// It is derived, never stored independently: the evaluator recomputes it
// whenever either context piece changes, except for AuthorizedByOverride,
// which is a terminal state reachable only through a successful access
// request and bypasses the evaluator from then on.
type AuthState int

const (
	Loading              AuthState = iota // context not complete yet
	VpnBlocked                            // VPN detected, flow terminated
	Authorized                            // city matched the allow-list
	AuthorizedByOverride                  // granted via access request
	PendingRequest                        // not allowed, may request access
)

func (s AuthState) String() string {
	switch s {
	case Loading:
		return "LOADING"
	case VpnBlocked:
		return "VPN_BLOCKED"
	case Authorized:
		return "AUTHORIZED"
	case AuthorizedByOverride:
		return "AUTHORIZED_BY_OVERRIDE"
	case PendingRequest:
		return "PENDING_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// Granted reports whether the state permits entry to the call view.
func (s AuthState) Granted() bool {
	return s == Authorized || s == AuthorizedByOverride
}
