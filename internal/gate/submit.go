package gate

import (
	"context"
	"errors"
	"meetgate/internal/dataType"
	"meetgate/internal/utils"
	"time"

	"github.com/google/uuid"
)

// RequestStore persists access requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, req dataType.AccessRequest) error
}

// ErrOtpMismatch is returned when the entered code does not match the
// issued one. Comparison is exact string equality, case-sensitive.
var ErrOtpMismatch = errors.New("incorrect OTP")

// SubmitRequest validates the entered code against the issued one, persists
// the access request and applies the authorization override. On mismatch or
// persistence failure no state changes; the caller may retry. The returned
// record is the one handed to the store, for downstream event publication.
func (g *Gate) SubmitRequest(ctx context.Context, store RequestStore, enteredCode string, reqData dataType.JoinRequest) (dataType.AccessRequest, error) {
	g.mu.Lock()
	issued := g.otp.IssuedCode
	info := g.info
	var city string
	if g.location != nil {
		city = g.location.City
	}
	g.mu.Unlock()

	// An unissued code never matches, even against empty input.
	if issued == "" || enteredCode != issued {
		return dataType.AccessRequest{}, ErrOtpMismatch
	}

	rec := dataType.AccessRequest{
		ID:          uuid.New().String(),
		MeetingID:   g.meetingID,
		Name:        info.Name,
		EmployeeID:  info.EmployeeID,
		Designation: info.Designation,
		Email:       info.Email,
		City:        city,
		RemoteIP:    reqData.RemoteIP,
		UserAgent:   utils.SummarizeUserAgent(reqData.UserAgent),
		CreatedAt:   time.Now().UTC(),
	}

	if err := store.CreateRequest(ctx, rec); err != nil {
		return dataType.AccessRequest{}, err
	}

	g.mu.Lock()
	g.override = true
	g.dismissed = false
	g.mu.Unlock()
	return rec, nil
}
