package crc

// Version information for the crc module.
const (
	Version = "1.0.0"

	MinCompatibleVersion = "1.0.0"
)
