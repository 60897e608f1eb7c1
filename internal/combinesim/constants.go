package combinesim

import "time"

// Identity headers understood by the service.
const (
	headerUserID        = "X-User-ID"
	headerUserRole      = "X-User-Role"
	headerEmailVerified = "X-Email-Verified"
	headerUserName      = "X-User-Name"
)

// Retry configuration for throttled or timed out requests.
const (
	maxAttempts       = 5
	defaultRetryAfter = 250 * time.Millisecond
)

// Tolerance for comparing averages computed here with the service's.
const scoreTolerance = 1e-6

// File permission constants.
const (
	outputFilePermission = 0o600
	directoryPermission  = 0o750
)

const percentageMultiplier = 100
