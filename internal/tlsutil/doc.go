// Package tlsutil provides centralized, hardened TLS configuration for
// HTTP clients and servers: TLS 1.2+, AEAD cipher suites only.
package tlsutil
