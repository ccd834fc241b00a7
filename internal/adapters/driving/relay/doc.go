// Package relay runs the loopback server that stands in for the browser page
// which started an authorization.
//
// The server's landing page is the return URL handed to the backend. The
// completion page in a spawned tab reports back over a websocket on /ws or a
// plain POST to /message, tagged with its window name. The relay turns those
// into domain.WindowMessage values on a driven.MessageBus, tracks whether each
// spawned tab is still connected, and exposes its own address as a
// driven.Location so a redirect of the landing page can be detected.
package relay
