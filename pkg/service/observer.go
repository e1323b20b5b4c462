package service

import (
	"time"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/entity"
)

// Observer receives a callback for every completed operation.
type Observer interface {
	// OnOperation is called once per Save, Delete or Dump.
	OnOperation(op Operation, status types.Status, warnings int, duration time.Duration)

	// OnState is called after the store changed, with its new sizes.
	OnState(counts map[entity.Kind]int)
}

// NoopObserver ignores all callbacks.
type NoopObserver struct{}

func (NoopObserver) OnOperation(Operation, types.Status, int, time.Duration) {}
func (NoopObserver) OnState(map[entity.Kind]int)                             {}

// Operation names a service call.
type Operation string

// Operations.
const (
	OpSave   Operation = "save"
	OpDelete Operation = "delete"
	OpDump   Operation = "dump"
)
