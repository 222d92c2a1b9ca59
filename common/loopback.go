package common

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeLoopback rewrites an unroutable bind address (0.0.0.0, [::]) in a
// base URL to localhost so it can be dialed from the same host. Trailing
// slashes are removed. Inputs that do not parse are returned trimmed.
func NormalizeLoopback(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}

	switch u.Hostname() {
	case "0.0.0.0", "::":
		if port := u.Port(); port != "" {
			u.Host = net.JoinHostPort("localhost", port)
		} else {
			u.Host = "localhost"
		}
	}

	return strings.TrimRight(u.String(), "/")
}
