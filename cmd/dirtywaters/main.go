// Package main provides the entry point for the DirtyWaters CLI.
//
// DirtyWaters is a Tor-routed WordPress login security testing tool for
// authorized penetration tests. It tries password candidates against a
// wp-login.php endpoint through a Tor SOCKS5 proxy, rotating the Tor
// identity on a fixed schedule.
//
// Usage:
//
//	dirtywaters run -c config.yaml
//	dirtywaters history
//
// See --help for all available options.
package main

// main is the entry point for DirtyWaters.
func main() {
	Execute()
}
