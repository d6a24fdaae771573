package constants

const (
	// TimestampFormat is the canonical wall-clock timestamp layout (YYYY-MM-DDTHH:MM:SS)
	TimestampFormat = "2006-01-02T15:04:05"

	// TimestampFractionFormat is appended when the instant carries a sub-second part
	TimestampFractionFormat = ".000000"

	// MinTimestampLength is the shortest text accepted by timestamp validation
	MinTimestampLength = len(TimestampFormat)

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DefaultDurationMin is the length of an entry whose stop time was not given
	DefaultDurationMin = 30

	// DefaultApproxToleranceSec is the tolerance used when comparing timestamps loosely
	DefaultApproxToleranceSec = 1.0
)
