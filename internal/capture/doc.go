// Package capture implements the evidence capture pipeline.
//
// Camera frame messages arrive on cameras/{id}/frame either as a JSON
// envelope carrying base64 frame bytes or as raw binary. The pipeline stores
// the frame under a date/zone directory hierarchy, correlates it to an event
// (creating a standalone capture event when the payload carries none),
// persists an evidence row and submits the file to the external detection
// service on a fire-and-forget basis.
package capture
