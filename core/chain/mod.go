// Package chain implements a block-synchronous host for the relay modules.
//
// Every dispatched transaction and every block initialization runs inside a
// single database transaction. A rejected transaction or a failing hook rolls
// back its writes and the events it emitted. The committed events are kept in
// an in-memory log that can be inspected.
package chain

import (
	"encoding/binary"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/relay"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/store/kv"
	"go.dedis.ch/relay/core/txn"
	"golang.org/x/xerrors"
)

var (
	stateBucket = []byte("state")
	chainBucket = []byte("chain")
	heightKey   = []byte("height")
)

var promHeight = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "relay_chain_height",
	Help: "current block number of the host",
})

var promDispatch = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_chain_dispatch_total",
	Help: "number of dispatched transactions per result",
}, []string{"result"})

func init() {
	relay.PromCollectors = append(relay.PromCollectors, promHeight, promDispatch)
}

// errRejected is used to roll back the database transaction of a rejected
// call.
var errRejected = xerrors.New("transaction rejected")

// Hook is the interface of a module that runs at the beginning of each block.
// A hook never fails: errors must be handled by the module.
type Hook interface {
	OnInitialize(snap store.Snapshot, step execution.Step)
}

// Chain is a host that executes transactions and block hooks on a key/value
// database.
type Chain struct {
	sync.Mutex

	db     kv.DB
	exec   execution.Service
	hooks  []Hook
	block  uint64
	events []execution.Record
	logger zerolog.Logger
}

// Option is the type of option to set some fields of the chain.
type Option func(*Chain)

// WithLogger is an option to set the logger of the chain.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// NewChain creates a new chain that resumes at the block stored in the
// database, or at zero.
func NewChain(db kv.DB, exec execution.Service, opts ...Option) (*Chain, error) {
	c := &Chain{
		db:     db,
		exec:   exec,
		logger: relay.Logger.With().Str("module", "chain").Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	err := db.View(func(txn kv.ReadableTx) error {
		bucket := txn.GetBucket(chainBucket)
		if bucket == nil {
			return nil
		}

		value := bucket.Get(heightKey)
		if len(value) == 8 {
			c.block = binary.BigEndian.Uint64(value)
		}

		return nil
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to read height: %v", err)
	}

	promHeight.Set(float64(c.block))

	return c, nil
}

// Register adds a hook. Hooks run in the order of registration.
func (c *Chain) Register(hook Hook) {
	c.Lock()
	c.hooks = append(c.hooks, hook)
	c.Unlock()
}

// GetBlock returns the number of the current block.
func (c *Chain) GetBlock() uint64 {
	c.Lock()
	defer c.Unlock()

	return c.block
}

// GetEvents returns the committed events in the order they were emitted.
func (c *Chain) GetEvents() []execution.Record {
	c.Lock()
	defer c.Unlock()

	return append([]execution.Record{}, c.events...)
}

// NextBlock moves the chain to the next block and runs the hooks.
func (c *Chain) NextBlock() error {
	c.Lock()
	defer c.Unlock()

	next := c.block + 1
	events := execution.NewEvents(next)

	err := c.db.Update(func(txn kv.WritableTx) error {
		snap, err := c.snapshot(txn)
		if err != nil {
			return err
		}

		step := execution.Step{
			Block:  next,
			Events: events,
		}

		for _, hook := range c.hooks {
			hook.OnInitialize(snap, step)
		}

		bucket, err := txn.GetBucketOrCreate(chainBucket)
		if err != nil {
			return xerrors.Errorf("failed to open bucket: %v", err)
		}

		height := make([]byte, 8)
		binary.BigEndian.PutUint64(height, next)

		err = bucket.Set(heightKey, height)
		if err != nil {
			return xerrors.Errorf("failed to write height: %v", err)
		}

		txn.OnCommit(func() {
			c.block = next
			c.events = append(c.events, events.GetRecords()...)
		})

		return nil
	})
	if err != nil {
		return xerrors.Errorf("failed to initialize block %d: %v", next, err)
	}

	promHeight.Set(float64(next))

	c.logger.Debug().Uint64("block", next).Msg("new block")

	return nil
}

// Dispatch executes the transaction in the current block. A rejected
// transaction is returned with its result and leaves the state untouched.
func (c *Chain) Dispatch(tx txn.Transaction) (execution.Result, error) {
	c.Lock()
	defer c.Unlock()

	events := execution.NewEvents(c.block)

	var res execution.Result

	err := c.db.Update(func(txn kv.WritableTx) error {
		snap, err := c.snapshot(txn)
		if err != nil {
			return err
		}

		step := execution.Step{
			Block:   c.block,
			Current: tx,
			Events:  events,
		}

		res, err = c.exec.Execute(snap, step)
		if err != nil {
			return xerrors.Errorf("failed to execute tx: %v", err)
		}

		if !res.Accepted {
			return errRejected
		}

		txn.OnCommit(func() {
			c.events = append(c.events, events.GetRecords()...)
		})

		return nil
	})

	if xerrors.Is(err, errRejected) {
		promDispatch.WithLabelValues("rejected").Inc()

		c.logger.Info().Str("reason", res.Message).Msg("transaction rejected")

		return res, nil
	}

	if err != nil {
		promDispatch.WithLabelValues("error").Inc()
		return res, err
	}

	promDispatch.WithLabelValues("accepted").Inc()

	return res, nil
}

// View executes the read-only function on the current state.
func (c *Chain) View(fn func(snap store.Readable) error) error {
	return c.db.View(func(txn kv.ReadableTx) error {
		return fn(kv.NewSnapshot(txn.GetBucket(stateBucket)))
	})
}

// Update executes the function on the state in a single transaction. It is
// used to write the genesis state.
func (c *Chain) Update(fn func(snap store.Snapshot, step execution.Step) error) error {
	c.Lock()
	defer c.Unlock()

	events := execution.NewEvents(c.block)

	return c.db.Update(func(txn kv.WritableTx) error {
		snap, err := c.snapshot(txn)
		if err != nil {
			return err
		}

		err = fn(snap, execution.Step{Block: c.block, Events: events})
		if err != nil {
			return err
		}

		txn.OnCommit(func() {
			c.events = append(c.events, events.GetRecords()...)
		})

		return nil
	})
}

func (c *Chain) snapshot(txn kv.WritableTx) (store.Snapshot, error) {
	bucket, err := txn.GetBucketOrCreate(stateBucket)
	if err != nil {
		return nil, xerrors.Errorf("failed to open bucket: %v", err)
	}

	return kv.NewSnapshot(bucket), nil
}
