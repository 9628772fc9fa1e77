// Package realtime is the publish/subscribe seam between the timing core and
// whatever pushes updates to clients.
//
// The core only sees Publisher. Hub is the in-process implementation used by
// the HTTP server: each room ("event:<id>") fans out to buffered subscriber
// channels and a full subscriber drops the message instead of blocking the
// publisher. The timing feature streams a room over Server-Sent Events.
package realtime
