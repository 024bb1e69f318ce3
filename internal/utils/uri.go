package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateInternalRedirectPath rejects redirect targets that would leave the
// site. The VPN-block redirect target comes from config, so it is validated
// once at load time; the same rule applies to any redirect the gate emits.
func ValidateInternalRedirectPath(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("missing redirect target")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %v", err)
	}

	if u.Scheme != "" || u.Host != "" {
		return "", fmt.Errorf("redirect target must not contain scheme or host")
	}
	if strings.HasPrefix(u.Path, "//") {
		return "", fmt.Errorf("redirect target must not be scheme-relative")
	}
	if !strings.HasPrefix(u.Path, "/") {
		return "", fmt.Errorf("redirect path must be absolute")
	}

	redirect := u.Path
	if u.RawQuery != "" {
		redirect += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		redirect += "#" + u.Fragment
	}

	return redirect, nil
}
