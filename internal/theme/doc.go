// Package theme provides CSS theming for the overlay window.
package theme
