// Package rules implements the motion-triggered automation rule.
//
// A motion signal resolves to a zone, passes a per-zone cooldown gate, is
// persisted as a motion event and fans out: every active relay in the zone
// is switched on (with a relay_on event per relay) and every active camera
// is asked to capture frames correlated to the motion event.
//
// The cooldown gate reads the zone's last persisted motion event; motion
// handling is serialized per zone so concurrent deliveries cannot interleave
// the check-then-persist sequence for the same zone.
package rules
