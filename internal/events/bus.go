package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type (
	DocumentSavingHandler   func(ctx context.Context, p *DocumentSavingPayload) error
	DocumentDeletingHandler func(ctx context.Context, p *DocumentDeletingPayload) error
	TaskSavingHandler       func(ctx context.Context, p *TaskSavingPayload) error
	TaskDeletingHandler     func(ctx context.Context, p *TaskDeletingPayload) error
)

// Bus dispatches events to typed subscribers.
type Bus struct {
	mu               sync.RWMutex
	documentSaving   []DocumentSavingHandler
	documentDeleting []DocumentDeletingHandler
	taskSaving       []TaskSavingHandler
	taskDeleting     []TaskDeletingHandler

	hooks hooks
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

func (bus *Bus) SubscribeDocumentSaving(fn DocumentSavingHandler) {
	bus.mu.Lock()
	bus.documentSaving = append(bus.documentSaving, fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(DocumentSaving)
}

func (bus *Bus) SubscribeDocumentDeleting(fn DocumentDeletingHandler) {
	bus.mu.Lock()
	bus.documentDeleting = append(bus.documentDeleting, fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(DocumentDeleting)
}

func (bus *Bus) SubscribeTaskSaving(fn TaskSavingHandler) {
	bus.mu.Lock()
	bus.taskSaving = append(bus.taskSaving, fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(TaskSaving)
}

func (bus *Bus) SubscribeTaskDeleting(fn TaskDeletingHandler) {
	bus.mu.Lock()
	bus.taskDeleting = append(bus.taskDeleting, fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(TaskDeleting)
}

// PublishDocumentSaving runs every DocumentSaving subscriber and joins their
// errors.
func (bus *Bus) PublishDocumentSaving(ctx context.Context, p *DocumentSavingPayload) error {
	bus.mu.RLock()
	subs := append([]DocumentSavingHandler(nil), bus.documentSaving...)
	bus.mu.RUnlock()

	bus.runOnPublish(DocumentSaving, p)
	var errs []error
	for _, fn := range subs {
		errs = append(errs, bus.call(DocumentSaving, p, func() error { return fn(ctx, p) }))
	}
	return errors.Join(errs...)
}

func (bus *Bus) PublishDocumentDeleting(ctx context.Context, p *DocumentDeletingPayload) error {
	bus.mu.RLock()
	subs := append([]DocumentDeletingHandler(nil), bus.documentDeleting...)
	bus.mu.RUnlock()

	bus.runOnPublish(DocumentDeleting, p)
	var errs []error
	for _, fn := range subs {
		errs = append(errs, bus.call(DocumentDeleting, p, func() error { return fn(ctx, p) }))
	}
	return errors.Join(errs...)
}

func (bus *Bus) PublishTaskSaving(ctx context.Context, p *TaskSavingPayload) error {
	bus.mu.RLock()
	subs := append([]TaskSavingHandler(nil), bus.taskSaving...)
	bus.mu.RUnlock()

	bus.runOnPublish(TaskSaving, p)
	var errs []error
	for _, fn := range subs {
		errs = append(errs, bus.call(TaskSaving, p, func() error { return fn(ctx, p) }))
	}
	return errors.Join(errs...)
}

func (bus *Bus) PublishTaskDeleting(ctx context.Context, p *TaskDeletingPayload) error {
	bus.mu.RLock()
	subs := append([]TaskDeletingHandler(nil), bus.taskDeleting...)
	bus.mu.RUnlock()

	bus.runOnPublish(TaskDeleting, p)
	var errs []error
	for _, fn := range subs {
		errs = append(errs, bus.call(TaskDeleting, p, func() error { return fn(ctx, p) }))
	}
	return errors.Join(errs...)
}

// call runs one subscriber, turning a panic into an error.
func (bus *Bus) call(event Event, payload any, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			bus.runOnPanic(event, payload, r)
			err = fmt.Errorf("subscriber of %s panicked: %v", event, r)
		}
	}()
	if err = fn(); err != nil {
		bus.runOnError(event, payload, err)
	}
	return err
}
