// Package audio plays the overlay's cue sounds.
package audio
