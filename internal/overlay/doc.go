// Package overlay implements the request overlay controller: the Idle/Active
// state machine, its countdown, and the view state frontends render.
package overlay
