package utils

import (
	"fmt"

	"github.com/mssola/useragent"
)

// SummarizeUserAgent reduces a raw User-Agent header to the fields worth
// keeping on an access-request audit record. Non-browser agents are kept
// verbatim.
func SummarizeUserAgent(inputUA string) string {
	if len(inputUA) < 8 || inputUA[:8] != "Mozilla/" {
		return inputUA
	}

	ua := useragent.New(inputUA)
	browser, browserVersion := ua.Browser()

	return fmt.Sprintf("Platform:%v,OS:%v,Browser:%v %v,Mobile:%v,Bot:%v",
		ua.Platform(), ua.OS(), browser, browserVersion, ua.Mobile(), ua.Bot())
}
