package loadgen

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultSettle        = 2 * time.Second
	PercentageMultiplier = 100
	loadgenPassword      = "loadgen-password"
	emailDomain          = "loadgen.timeforge.test"
)
