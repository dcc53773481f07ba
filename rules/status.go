package rules

const (
	// GameStatusStopped represents an episode that has been created but not started
	GameStatusStopped = "stopped"
	// GameStatusRunning represents an episode being ticked by a worker
	GameStatusRunning = "running"
	// GameStatusError represents an episode that ended because of an error
	GameStatusError = "error"
	// GameStatusComplete represents an episode that reached a terminal outcome
	GameStatusComplete = "complete"
)
