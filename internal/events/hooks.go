package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// hooks holds observers of bus activity.
type hooks struct {
	mu          sync.RWMutex
	onPublish   []func(Event, any)
	onSubscribe []func(Event)
	onError     []func(Event, any, error)
	onPanic     []func(Event, any, any)
}

// OnPublish registers a hook that fires before subscribers run.
func (bus *Bus) OnPublish(fn func(Event, any)) {
	bus.hooks.mu.Lock()
	bus.hooks.onPublish = append(bus.hooks.onPublish, fn)
	bus.hooks.mu.Unlock()
}

// OnSubscribe registers a hook that fires after a subscriber is registered.
func (bus *Bus) OnSubscribe(fn func(Event)) {
	bus.hooks.mu.Lock()
	bus.hooks.onSubscribe = append(bus.hooks.onSubscribe, fn)
	bus.hooks.mu.Unlock()
}

// OnError registers a hook that fires when a subscriber returns an error.
func (bus *Bus) OnError(fn func(Event, any, error)) {
	bus.hooks.mu.Lock()
	bus.hooks.onError = append(bus.hooks.onError, fn)
	bus.hooks.mu.Unlock()
}

// OnPanic registers a hook that fires when a subscriber panics.
func (bus *Bus) OnPanic(fn func(Event, any, any)) {
	bus.hooks.mu.Lock()
	bus.hooks.onPanic = append(bus.hooks.onPanic, fn)
	bus.hooks.mu.Unlock()
}

func (bus *Bus) runOnPublish(event Event, payload any) {
	bus.hooks.mu.RLock()
	hooks := make([]func(Event, any), len(bus.hooks.onPublish))
	copy(hooks, bus.hooks.onPublish)
	bus.hooks.mu.RUnlock()
	for _, fn := range hooks {
		fn(event, payload)
	}
}

func (bus *Bus) runOnSubscribe(event Event) {
	bus.hooks.mu.RLock()
	hooks := make([]func(Event), len(bus.hooks.onSubscribe))
	copy(hooks, bus.hooks.onSubscribe)
	bus.hooks.mu.RUnlock()
	for _, fn := range hooks {
		fn(event)
	}
}

func (bus *Bus) runOnError(event Event, payload any, err error) {
	bus.hooks.mu.RLock()
	hooks := make([]func(Event, any, error), len(bus.hooks.onError))
	copy(hooks, bus.hooks.onError)
	bus.hooks.mu.RUnlock()
	for _, fn := range hooks {
		fn(event, payload, err)
	}
}

func (bus *Bus) runOnPanic(event Event, payload any, recovered any) {
	bus.hooks.mu.RLock()
	hooks := make([]func(Event, any, any), len(bus.hooks.onPanic))
	copy(hooks, bus.hooks.onPanic)
	bus.hooks.mu.RUnlock()
	for _, fn := range hooks {
		func() {
			defer func() { recover() }() //nolint:errcheck
			fn(event, payload, recovered)
		}()
	}
}

// RegisterDebugLogger logs bus activity: publishes at debug level,
// subscriber errors as warnings and panics as errors.
func RegisterDebugLogger(bus *Bus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, _ any) {
		logger.Debug().Str("event", string(event)).Msg("event fired")
	})

	bus.OnError(func(event Event, _ any, err error) {
		logger.Warn().Err(err).Str("event", string(event)).Msg("subscriber failed")
	})

	bus.OnPanic(func(event Event, _ any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}
