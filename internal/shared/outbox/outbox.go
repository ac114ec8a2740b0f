package outbox

// Status values for outbox rows persisted inside the same transaction as the
// state change. The worker relay reads pending rows in creation order and
// flips each to published only after a successful broker publish.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
)
