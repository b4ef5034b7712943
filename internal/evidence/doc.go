// Package evidence persists captured camera frames.
//
// A frame becomes two artifacts: a file on disk under a date/zone hierarchy
// (FrameStore) and an evidences row referencing it by relative path
// (Repository). Detection metadata on the row is written later by the
// external detection service, not by this worker.
package evidence
