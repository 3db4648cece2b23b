package metadata

// Keys of the metadata table.
const (
	// LastBulkResetAtKey stores the RFC3339 time of the last fully committed
	// scheduled season reset.
	LastBulkResetAtKey = "season.last_bulk_reset_at"

	// LastBulkResetSeasonKey stores the season key (e.g. "2024-W01") that the
	// last scheduled reset closed.
	LastBulkResetSeasonKey = "season.last_bulk_reset_key"

	// PolicyKey stores the boundary policy the data was produced under. A
	// deployment that switches policy gets a warning on startup.
	PolicyKey = "season.policy"
)
