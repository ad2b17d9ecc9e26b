// Package geoip resolves a client IP to a country name for submission
// records. The real database binding lives behind the Lookup interface;
// this subsystem only consumes it.
package geoip

// Lookup maps an IP address to a country name. An empty string means
// the country is unknown.
type Lookup interface {
	CountryForIP(ip string) string
}

// Noop never knows the country.
type Noop struct{}

func (Noop) CountryForIP(string) string { return "" }

// Static is a fixed IP-to-country mapping. Used in tests and small
// deployments without a geo database.
type Static map[string]string

func (s Static) CountryForIP(ip string) string { return s[ip] }
