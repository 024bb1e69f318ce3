package gate

import (
	"context"
	"crypto/rand"
	"math/big"
	"meetgate/internal/dataType"
	"strconv"
)

// OtpMailer dispatches a one-time code to an email address. Fire-and-forget
// from the gate's perspective: no delivery tracking beyond the call result.
type OtpMailer interface {
	SendOtp(ctx context.Context, email, code string) error
}

// GenerateCode returns a 6-digit code drawn uniformly from [100000, 999999].
func GenerateCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand only fails when the platform source is broken
		panic(err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10)
}

// IssueOtp stores the request info, generates a fresh code and dispatches it
// to the given email. Each call overwrites the previous code, silently
// invalidating it; there is no cooldown or expiry. On dispatch failure the
// code stays issued but SentFlag remains false, and the caller may retry.
func (g *Gate) IssueOtp(ctx context.Context, mailer OtpMailer, info dataType.RequestInfo) error {
	code := GenerateCode()

	g.mu.Lock()
	g.info = info
	g.otp = dataType.OtpState{IssuedCode: code}
	g.mu.Unlock()

	if err := mailer.SendOtp(ctx, info.Email, code); err != nil {
		return err
	}

	g.mu.Lock()
	g.otp.SentFlag = true
	g.mu.Unlock()
	return nil
}
