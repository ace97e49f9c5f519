// Package types defines the catalog entities, request payloads, storage
// configuration and standard errors shared by the MiniatureDB server, its
// storage backend and its Go client.
package types
