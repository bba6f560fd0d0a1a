// Package daemon provides supporting services for reqhudd, chiefly
// configuration hot-reload.
package daemon
