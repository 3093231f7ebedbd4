package ir

// Version constants for the wire formats and engine.
const (
	// MessageVersion is the version of the signed transaction message layout.
	MessageVersion = "1"

	// EngineVersion is the blocklog engine version.
	EngineVersion = "0.1.0"
)
