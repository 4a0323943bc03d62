// Package types contains shared type definitions used across the mongoscope backend.
package types

import "time"

// =============================================================================
// Connection Profile Types
// =============================================================================

// ProfileStatus is the lifecycle status of a connection profile.
type ProfileStatus string

const (
	StatusDisconnected ProfileStatus = "disconnected"
	StatusConnecting   ProfileStatus = "connecting"
	StatusConnected    ProfileStatus = "connected"
	StatusError        ProfileStatus = "error"
)

// ConnectionParams is the structured subset of connection parameters kept
// for display and editing. The URI is authoritative; these are convenience.
type ConnectionParams struct {
	Host     string `json:"host,omitempty"`
	Port     string `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	SSL      bool   `json:"ssl,omitempty"`
}

// ConnectionProfile is a named, persisted description of one MongoDB endpoint.
type ConnectionProfile struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	URI           string            `json:"uri"`
	Status        ProfileStatus     `json:"status"`
	Error         string            `json:"error,omitempty"`
	LastConnected *time.Time        `json:"lastConnected,omitempty"`
	Params        *ConnectionParams `json:"params,omitempty"`
	IsActive      bool              `json:"isActive"`
}

// ProfileUpdate carries the fields of a profile edit. Nil fields are
// left untouched by the merge.
type ProfileUpdate struct {
	Name   *string           `json:"name,omitempty"`
	URI    *string           `json:"uri,omitempty"`
	Params *ConnectionParams `json:"params,omitempty"`
}

// =============================================================================
// Persisted State
// =============================================================================

// StateVersion is the version of the persisted registry layout. A stored
// state with any other version is discarded rather than migrated.
const StateVersion = 1

// PersistedState is the durable projection of the registry. URIs are
// redacted (passwords moved to the OS keyring) before this is written.
type PersistedState struct {
	Version          int                 `json:"version"`
	Connections      []ConnectionProfile `json:"connections"`
	ActiveConnection *ConnectionProfile  `json:"activeConnection"`
}

// =============================================================================
// Database and Collection Summaries
// =============================================================================

// DatabaseInfo describes a MongoDB database.
type DatabaseInfo struct {
	Name       string `json:"name"`
	SizeOnDisk int64  `json:"sizeOnDisk"`
	Empty      bool   `json:"empty"`
}

// CollectionInfo describes a MongoDB collection with its collStats summary.
type CollectionInfo struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Documents      int64  `json:"documents"`
	Size           int64  `json:"size"`
	AvgObjSize     int64  `json:"avgObjSize"`
	StorageSize    int64  `json:"storageSize"`
	Indexes        int    `json:"indexes"`
	TotalIndexSize int64  `json:"totalIndexSize"`
}

// CollectionStats contains storage statistics about a collection.
type CollectionStats struct {
	Namespace      string `json:"namespace"`
	Count          int64  `json:"count"`
	Size           int64  `json:"size"`
	StorageSize    int64  `json:"storageSize"`
	AvgObjSize     int64  `json:"avgObjSize"`
	IndexCount     int    `json:"indexCount"`
	TotalIndexSize int64  `json:"totalIndexSize"`
	Capped         bool   `json:"capped"`
}

// IndexInfo describes a MongoDB index.
type IndexInfo struct {
	Name       string         `json:"name"`
	Keys       map[string]int `json:"keys"`
	Unique     bool           `json:"unique"`
	Sparse     bool           `json:"sparse"`
	TTL        int64          `json:"ttl,omitempty"`
	Size       int64          `json:"size"`
	UsageCount int64          `json:"usageCount,omitempty"`
}

// CollectionDetails bundles stats, indexes and the inferred schema for
// the collection info endpoint.
type CollectionDetails struct {
	Stats   *CollectionStats    `json:"stats"`
	Indexes []IndexInfo         `json:"indexes"`
	Schema  map[string][]string `json:"schema"`
}

// =============================================================================
// Document Listing
// =============================================================================

// DocumentPage is one page of documents from a collection listing.
// Documents are Extended JSON strings.
type DocumentPage struct {
	Documents  []string `json:"documents"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalPages int      `json:"totalPages"`
}
