package scrapers

import "strings"

// Cookie is a browser cookie as persisted in a session token
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Rescope returns copies of cookies bound to domain.
// Restored sessions are applied at the site root so every subdomain sees them.
func Rescope(cookies []Cookie, domain string) []Cookie {
	if domain == "" {
		return cookies
	}
	out := make([]Cookie, len(cookies))
	for i, c := range cookies {
		if c.Path == "" {
			c.Path = "/"
		}
		c.Domain = domain
		out[i] = c
	}
	return out
}

// Filter keeps cookies whose domain ends with suffix
func Filter(cookies []Cookie, suffix string) []Cookie {
	suffix = strings.TrimPrefix(suffix, ".")
	var out []Cookie
	for _, c := range cookies {
		d := strings.TrimPrefix(c.Domain, ".")
		if d == suffix || strings.HasSuffix(d, "."+suffix) {
			out = append(out, c)
		}
	}
	return out
}
