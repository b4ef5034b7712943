// Package event persists immutable domain events.
//
// Besides row creation, the package exposes the one query the motion rule
// engine needs: the most recent motion event for a zone, which drives the
// cooldown gate.
package event
