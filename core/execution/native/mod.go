// Package native runs the contracts compiled into the node.
//
// A call names its contract with the ContractArg argument. The contract
// receives the snapshot of the call and writes in it directly. A rejected
// call is not an execution error: the result carries the reason and the
// chain discards the writes.
package native

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.dedis.ch/relay"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/store"
	"golang.org/x/xerrors"
)

// ContractArg is the argument of a call that holds the contract name.
const ContractArg = "go.dedis.ch/relay.ContractArg"

var promCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "relay_contract_calls_total",
	Help: "number of executed calls per contract",
}, []string{"contract", "result"})

func init() {
	relay.PromCollectors = append(relay.PromCollectors, promCalls)
}

// Contract is a contract run by the native execution.
type Contract interface {
	Execute(store.Snapshot, execution.Step) error
}

// Service dispatches the calls to the registered contracts.
//
// - implements execution.Service
type Service struct {
	contracts map[string]Contract
	logger    zerolog.Logger
}

// NewExecution returns an execution without any contract.
func NewExecution() *Service {
	return &Service{
		contracts: make(map[string]Contract),
		logger:    relay.Logger.With().Str("execution", "native").Logger(),
	}
}

// Set registers the contract under the name. It panics if the name is taken.
func (ns *Service) Set(name string, contract Contract) {
	_, found := ns.contracts[name]
	if found {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	ns.contracts[name] = contract
}

// Execute implements execution.Service. It returns an error only when the
// call cannot reach a contract.
func (ns *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	if step.Current == nil {
		return execution.Result{}, xerrors.New("missing transaction")
	}

	name := string(step.Current.GetArg(ContractArg))

	contract, found := ns.contracts[name]
	if !found {
		return execution.Result{}, xerrors.Errorf("unknown contract '%s'", name)
	}

	err := contract.Execute(snap, step)
	if err != nil {
		promCalls.WithLabelValues(name, "rejected").Inc()

		ns.logger.Debug().Err(err).Str("contract", name).Uint64("block", step.Block).
			Msg("call rejected")

		return execution.Result{Message: err.Error()}, nil
	}

	promCalls.WithLabelValues(name, "accepted").Inc()

	return execution.Result{Accepted: true}, nil
}
