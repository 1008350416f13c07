package panoptic

import (
	"context"
	"time"

	Logger "github.com/Luismorlan/honeybee/utils/log"
)

const (
	GracefulRetryDelay = 3 * time.Second
)

// RunModuleWithGracefulRestart keeps a module running until it returns
// without error or ctx is done.
func RunModuleWithGracefulRestart(ctx context.Context, module Module) {
	for {
		err := module.RunModule(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		Logger.Log.Errorf("module %s exited with error %v, retry in %s", module.Name(), err, GracefulRetryDelay)

		// Wait for a small amount of time and restart.
		select {
		case <-time.After(GracefulRetryDelay):
		case <-ctx.Done():
			return
		}
	}
}

type Module interface {
	// RunModule contains the customized logic of the module. It takes in a
	// context object by which its lifecycle is managed. Return error if
	// encountered any error during execution.
	RunModule(ctx context.Context) error

	// Return name of the Module. Uniquely identifies the module instance.
	Name() string

	// Release what the module holds. Called once, after ctx is cancelled.
	Shutdown()
}
