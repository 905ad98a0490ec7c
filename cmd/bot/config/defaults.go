package config

// Default values for bot configuration.
const (
	DefaultPollingIntervalSeconds = 3
	DefaultExcelThreshold         = 15
	DefaultHTTPTimeoutSeconds     = 30

	// Default column widths for text rendering.
	DefaultNameColumnWidth     = 20
	DefaultMessagesColumnWidth = 8
	DefaultWordsColumnWidth    = 8
	DefaultEmojisColumnWidth   = 6
)
