package lifecycle

// Version information for the lifecycle module.
const (
	// Version is the current version of the lifecycle module. 2.0.0
	// replaced AddWorker and WorkerDone with Go.
	Version = "2.0.0"

	// MinCompatibleVersion is the oldest version callers may rely on.
	MinCompatibleVersion = "2.0.0"
)
