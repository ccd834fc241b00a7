// Package backend implements driven.LinkBackend over the backend-of-record's HTTP API.
//
// Requests carry the session cookie jar the way a browser would with
// credentials included, and mutating calls add the anti-forgery header.
// Calls are throttled with a token bucket and back off after 429 responses.
package backend
