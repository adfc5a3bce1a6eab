package cli

import "time"

// Default values for CLI output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// ProgressThrottle limits how often the download bar redraws.
	ProgressThrottle = 100 * time.Millisecond
	// ProgressWidth is the width of the download bar in characters.
	ProgressWidth = 40
)
