// Package identity provides network identities for the harvester.
//
// An identity is an egress route the review source sees a run coming from:
// a freshly bootstrapped embedded Tor daemon, a SOCKS5 proxy from a pool, a
// VPN tunnel brought up and down by external commands, or the host's own
// connection. A Rotator hands out identities; callers use Use so that every
// acquired identity is released exactly once, whatever happens inside.
//
// Rotating identities between severity levels spreads a long crawl over
// several addresses, which keeps per-address rate limits of the source from
// ending a run early.
package identity
