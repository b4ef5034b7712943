// Package router classifies inbound MQTT messages by topic and dispatches
// them to the motion rule engine, the status and telemetry ingestors and the
// capture pipeline. Messages on unknown topics or with non-numeric id
// segments are dropped, never erroring the session.
package router
