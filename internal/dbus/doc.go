// Package dbus exports the overlay on the session bus so desktop tools can
// show and hide requests and observe answers as signals.
package dbus
