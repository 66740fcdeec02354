// Package security validates source image URLs before the worker
// fetches them. A caller-supplied URL must never reach local files,
// internal services, or cloud metadata endpoints.
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// blockedHostnames are rejected before DNS resolution. Everything else
// resolves and is judged by address range.
var blockedHostnames = map[string]bool{
	"localhost":        true,
	"127.0.0.1":        true,
	"0.0.0.0":          true,
	"::1":              true,
	"::":               true,
	"::ffff:127.0.0.1": true,
}

// URLValidator enforces the fetch policy for source image URLs.
type URLValidator struct {
	allowPrivate bool
}

// NewURLValidator creates a validator. allowPrivate permits loopback and
// private-range targets, which development setups need.
func NewURLValidator(allowPrivate bool) *URLValidator {
	return &URLValidator{allowPrivate: allowPrivate}
}

// Validate checks the scheme and the target address. The scheme check
// always applies; address checks are skipped when private targets are
// allowed.
func (v *URLValidator) Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("scheme %q is not allowed, only http and https are", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("URL has no host")
	}

	if v.allowPrivate {
		return nil
	}

	if blockedHostnames[host] {
		return fmt.Errorf("host %q is blocked", host)
	}

	// Resolution failures pass through: the fetch itself will surface
	// them with a better error.
	ips, err := net.LookupIP(host)
	if err != nil {
		return nil
	}

	for _, ip := range ips {
		if err := checkIP(ip); err != nil {
			return err
		}
	}
	return nil
}

// checkIP rejects address ranges that point inside the deployment
// rather than out at an image host.
func checkIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("address %s is blocked: loopback", ip)
	case ip.IsPrivate():
		return fmt.Errorf("address %s is blocked: private range", ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("address %s is blocked: link-local", ip)
	case ip.IsMulticast():
		return fmt.Errorf("address %s is blocked: multicast", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("address %s is blocked: unspecified", ip)
	}
	return nil
}
