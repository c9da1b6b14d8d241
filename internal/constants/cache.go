package constants

import "time"

const (
	UserCachePrefix       = "user"       // CacheBuilder adds colon
	UserCacheExpiry       = 7 * 24 * time.Hour
	InspectionCachePrefix = "inspection" // full tree by inspection ID
	InspectionCacheExpiry = 30 * time.Minute
	ExportLockPrefix      = "export_lock"
	ExportLockExpiry      = 2 * time.Minute
)
