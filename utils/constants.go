// File: utils/constants.go
package utils

import "time"

// RevokedTokenPrefix is the prefix used for Redis revoked-token cache keys.
const RevokedTokenPrefix = "revoked:"

// AvailabilityCachePrefix is the prefix for cached session availability snapshots.
const AvailabilityCachePrefix = "availability:"

// AvailabilityCacheTTL is the time-to-live for availability cache entries.
const AvailabilityCacheTTL = 30 * time.Second
