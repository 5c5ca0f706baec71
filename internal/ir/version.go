package ir

// Version constants recorded with every stored run.
const (
	// SchemaVersion is the attribute encoding version.
	SchemaVersion = "1"

	// ToolVersion is the navexpect release.
	ToolVersion = "0.3.0"
)
