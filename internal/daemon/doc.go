// Package daemon ties the slideshow engine, the embedded album server,
// and the inspection API into a single long-running process guarded by
// a file lock so only one instance runs per machine.
package daemon
