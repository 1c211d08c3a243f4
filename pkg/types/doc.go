// Package types defines the schema and feature model, field mappings,
// merge requests, collaborator interfaces, and standard errors for the
// geofuse merge engine.
package types
