// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections
// based on the application's configuration.
//
// # Connect
//
// Connect establishes a connection for the configured driver. The connection is
// optional: the media feature works without one and only loses the known-media
// exclusion source.
//
// # Schema Inspection
//
// GetTableColumns and RequireColumns verify that the known-media table exposes
// the columns the repository reads before any query runs against it.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Warn("Database connection failed", zap.Error(err))
//	}
//
//	err = database.RequireColumns(db, "page_media", "page_title", "file_title")
package database
