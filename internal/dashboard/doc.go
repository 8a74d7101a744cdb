// Package dashboard serves the read-only capture viewer.
//
// The viewer lists every row of the capture log newest first, links each
// row to its recorded clip, and exposes JSON endpoints for the capture list
// and for daemon status. Clips are served from the capture directory by
// basename only; anything that could name a path outside it is a 404.
package dashboard
