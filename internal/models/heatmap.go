package models

// HexBucket is the aggregate of all records that fall into one H3 cell
type HexBucket struct {
	Latitude     float64  `json:"latitude"`      // Cell center
	Longitude    float64  `json:"longitude"`     // Cell center
	Weight       int      `json:"weight"`        // Number of records
	UniqueValues int      `json:"unique_values"` // Number of distinct record ids
	H3ID         string   `json:"h3_id"`
	AvgValue     *float64 `json:"avg_value,omitempty"` // Mean of the requested column
}

// CacheInfo represents the cache introspection response
type CacheInfo struct {
	CacheSize  int      `json:"cache_size"`
	MaxSize    int      `json:"max_size"`
	TTLSeconds float64  `json:"ttl_seconds"`
	CachedKeys []string `json:"cached_keys"`
}
