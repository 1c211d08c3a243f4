// Package geofuse holds module-wide metadata.
package geofuse

// Version is the geofuse release version.
const Version = "0.1.0"
