package ir

// Version constants for the engine and its audit schema.
const (
	// SchemaVersion is the audit log schema version, stored as the SQLite
	// user_version.
	SchemaVersion = 1

	// EngineVersion is the flowlua engine version.
	EngineVersion = "0.1.0"
)
