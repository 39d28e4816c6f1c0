package health

import (
	"fmt"
	"net"
	"net/url"
)

// dialTarget turns an endpoint address into a host:port for TCP dialing.
func dialTarget(address string) (string, error) {
	u, err := url.Parse(address)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("parse address %q: not a URL", address)
	}
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		switch u.Scheme {
		case "https":
			host = net.JoinHostPort(host, "443")
		default:
			host = net.JoinHostPort(host, "80")
		}
	}
	return host, nil
}
