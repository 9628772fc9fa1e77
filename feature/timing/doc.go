// Package timing ingests checkpoint scans and drives the runner race state.
//
// A scan appends one record to the scan ledger and moves the runner through
//
//	not_started -> in_progress -> finished
//
// START (case-insensitive) sets the start time, FINISH sets finish and net
// time and triggers a ranking recomputation for the runner's category. Any
// other checkpoint promotes a not_started runner to in_progress. Every scan
// is broadcast to the event room; delivery failures never fail the scan.
//
// # HTTP Endpoints
//
//   - POST /timing/scan : Records a scan.
//   - GET /timing/runners/:runnerId/scans : Lists a runner's scans in order.
//   - GET /timing/events/:eventId/scans : Lists an event's scans, newest first.
//   - GET /timing/events/:eventId/stream : Server-sent events for the event room.
//   - POST /timing/events/:eventId/status : Stores and broadcasts an event status.
package timing
