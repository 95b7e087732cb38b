package ports

import "time"

// Clock returns the current time. Inject timeutil.Now in production.
type Clock func() time.Time
