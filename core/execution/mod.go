// Package execution defines the step of an execution and the service that
// applies a transaction to a snapshot.
package execution

import (
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/txn"
)

// Step is the context of the execution of a transaction, or of a block hook
// in which case there is no current transaction.
type Step struct {
	// Block is the number of the block being executed.
	Block uint64

	// Current is the transaction being executed.
	Current txn.Transaction

	// Events receives the events emitted during the execution.
	Events Emitter
}

// Emit forwards the event to the emitter of the step, if any.
func (s Step) Emit(source string, event interface{}) {
	if s.Events != nil {
		s.Events.Emit(source, event)
	}
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it.
	Execute(snap store.Snapshot, step Step) (Result, error)
}

// Emitter is the interface to emit domain events.
type Emitter interface {
	Emit(source string, event interface{})
}

// Record is an event emitted by a source during a block.
type Record struct {
	Block  uint64
	Source string
	Event  interface{}
}

// Events is an emitter that keeps the records in memory.
//
// - implements execution.Emitter
type Events struct {
	block   uint64
	records []Record
}

// NewEvents creates an empty list of events for the block.
func NewEvents(block uint64) *Events {
	return &Events{block: block}
}

// Emit implements execution.Emitter.
func (e *Events) Emit(source string, event interface{}) {
	e.records = append(e.records, Record{
		Block:  e.block,
		Source: source,
		Event:  event,
	})
}

// GetRecords returns the records in the order they were emitted.
func (e *Events) GetRecords() []Record {
	return append([]Record{}, e.records...)
}

// GetEvents returns the events of the source in the order they were emitted.
func (e *Events) GetEvents(source string) []interface{} {
	var events []interface{}

	for _, record := range e.records {
		if record.Source == source {
			events = append(events, record.Event)
		}
	}

	return events
}

// Reset removes every record.
func (e *Events) Reset() {
	e.records = nil
}
