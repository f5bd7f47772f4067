// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on domain, the ports and a few small libraries
// (uuid, x/sync). They never import adapters.
package services
