// Package address implements the single normalization rule every
// SMTP/HTTP/IMAP entry point applies to a recipient before it touches the
// store: trim, lowercase, and append the configured domain when absent.
// Normalization happens server-side only so that no client can bypass
// domain enforcement.
package address

import "strings"

// Normalize lowercases and trims addr, appending "@"+defaultDomain when
// addr has no "@". Calling Normalize on an already-normalized address is a
// no-op (idempotent).
func Normalize(addr, defaultDomain string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	addr = strings.TrimSpace(addr)
	addr = strings.ToLower(addr)

	if !strings.Contains(addr, "@") {
		addr = addr + "@" + strings.ToLower(defaultDomain)
	}

	return addr
}

// Split divides a normalized address into its local part and domain. It
// returns ok=false if addr does not contain exactly one "@".
func Split(addr string) (local, domain string, ok bool) {
	parts := strings.Split(addr, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Domain returns the domain portion of a normalized address, or "" if addr
// has no "@".
func Domain(addr string) string {
	_, domain, ok := Split(addr)
	if !ok {
		return ""
	}
	return domain
}
