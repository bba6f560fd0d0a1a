// Package bridge connects the overlay to its host: inbound messages over
// HTTP or stdin, outbound answers as HTTP callbacks.
package bridge
