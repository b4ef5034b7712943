// Package device provides read access to the device registry shared with the
// CRUD backend, plus the single mutation the worker performs: updating a
// device's active flag from status messages.
package device
