package apps

import "context"

// App is a runnable quiz application.
type App interface {
	Run(ctx context.Context, args []string) error
}
