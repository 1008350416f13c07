package panoptic

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	Logger "github.com/Luismorlan/honeybee/utils/log"
)

// Engine runs a set of modules over one shared event bus and owns their
// lifecycle.
type Engine struct {
	// Module's lifetime is bound to Engine's lifetime. Each Module runs in a
	// separate routine.
	Modules []Module

	// Root this engine is running on
	ctx context.Context

	// Cancel function for root context, used for graceful shutdown
	cancel context.CancelFunc

	// Modules talk to each other only through the bus.
	EventBus *gochannel.GoChannel

	shutdownOnce sync.Once
}

func NewEventBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)
}

func NewEngine(ms []Module, ctx context.Context, e *gochannel.GoChannel) *Engine {
	ctx, cancel := context.WithCancel(ctx)
	return &Engine{
		Modules:  ms,
		ctx:      ctx,
		cancel:   cancel,
		EventBus: e,
	}
}

// Run all modules and block until every one of them returned.
func (e *Engine) Run() {
	var wg sync.WaitGroup

	for idx := range e.Modules {
		wg.Add(1)
		go func(module Module) {
			defer wg.Done()
			Logger.Log.Infof("start engine module %s", module.Name())
			RunModuleWithGracefulRestart(e.ctx, module)
			Logger.Log.Infof("module %s finished execution", module.Name())
		}(e.Modules[idx])
	}

	wg.Wait()
}

// Shutdown cancels the engine context, shuts every module down and closes the
// bus. Safe to call more than once.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		Logger.Log.Infoln("starting graceful shutdown process")
		e.cancel()

		var wg sync.WaitGroup
		for idx := range e.Modules {
			wg.Add(1)
			go func(module Module) {
				defer wg.Done()
				module.Shutdown()
				Logger.Log.Infof("module %s shut down", module.Name())
			}(e.Modules[idx])
		}
		wg.Wait()

		if err := e.EventBus.Close(); err != nil {
			Logger.Log.Errorf("fail to close event bus: %s", err)
		}
	})
}
