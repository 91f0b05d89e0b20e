// Package http provides the HTTP client used to talk to myzuka.club.
//
// The Client in this package handles:
//   - User-Agent and Referer headers matching the origin site
//   - Connect, handshake, header and body-inactivity timeouts
//   - An optional SOCKS5 proxy with remote DNS resolution
//   - Indefinite retries with randomized backoff for transient failures
//
// # Basic Usage
//
//	client, err := http.NewClient(http.Config{Timeout: 10 * time.Second})
//
//	// Fetch an HTML page
//	page, err := client.GetString(ctx, "http://myzuka.club/Album/630746")
//
//	// Open a file, optionally from a byte offset
//	resp, err := client.Open(ctx, fileURL, "bytes=4194304-10485759")
//
// Errors that are not worth retrying (a 404, a malformed URL) come back
// wrapped with retry.Permanent; everything network-shaped is retried until
// the context is cancelled.
package http
