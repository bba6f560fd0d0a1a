// Package display renders the request overlay as a GTK4 layer-shell window.
package display
