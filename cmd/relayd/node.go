package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.dedis.ch/relay"
	"go.dedis.ch/relay/bridge/mmr"
	"go.dedis.ch/relay/bridge/relayauth"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/chain"
	"go.dedis.ch/relay/core/currency/ledger"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/execution/native"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/store/kv"
	"go.dedis.ch/relay/crypto/ecdsa"
	"golang.org/x/xerrors"
)

// node is a chain that hosts the relay authorities of an EVM chain.
type node struct {
	db          kv.DB
	chain       *chain.Chain
	ledger      ledger.Ledger
	authorities *relayauth.Service
	logger      zerolog.Logger
}

// newNode opens the database of the configuration and writes the genesis
// state if the chain is new.
func newNode(config Config, db kv.DB) (*node, error) {
	accumulator := mmr.NewAccumulator("mmr")
	currency := ledger.NewLedger()
	council := config.Authority.councilOrigin()

	authorities, err := relayauth.NewService(config.Authority.relayConfig(), relayauth.Dependencies{
		Sign:         ecdsa.NewSign(),
		Roots:        accumulator,
		Currency:     currency,
		AddOrigin:    council,
		RemoveOrigin: council,
		ResetOrigin:  access.EnsureRoot(),
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to create relay authorities: %v", err)
	}

	exec := native.NewExecution()
	relayauth.RegisterContract(exec, relayauth.NewContract(authorities))

	c, err := chain.NewChain(db, exec)
	if err != nil {
		return nil, xerrors.Errorf("failed to create chain: %v", err)
	}

	c.Register(accumulator)
	c.Register(authorities)

	n := &node{
		db:          db,
		chain:       c,
		ledger:      currency,
		authorities: authorities,
		logger:      relay.Logger.With().Str("node", config.Authority.Name).Logger(),
	}

	err = n.genesis(config.Genesis)
	if err != nil {
		return nil, xerrors.Errorf("failed to write genesis: %v", err)
	}

	return n, nil
}

// genesis mints the balances and writes the initial authorities unless the
// chain already has authorities.
func (n *node) genesis(accounts []GenesisAccount) error {
	if n.chain.GetBlock() > 0 {
		return nil
	}

	return n.chain.Update(func(snap store.Snapshot, step execution.Step) error {
		current, err := n.authorities.GetAuthorities(snap)
		if err != nil {
			return err
		}

		if len(current) > 0 {
			return nil
		}

		var authorities []relayauth.GenesisAuthority

		for _, account := range accounts {
			err = n.ledger.Mint(snap, access.AccountID(account.Account), account.Balance)
			if err != nil {
				return xerrors.Errorf("failed to mint: %v", err)
			}

			if account.Stake == 0 {
				continue
			}

			authority, err := account.authority()
			if err != nil {
				return err
			}

			authorities = append(authorities, authority)
		}

		err = n.authorities.InitGenesis(snap, step, authorities)
		if err != nil {
			return err
		}

		n.logger.Info().Int("authorities", len(authorities)).Msg("genesis written")

		return nil
	})
}

// run produces a block at every interval until the context is done.
func (n *node) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := n.chain.NextBlock()
			if err != nil {
				n.logger.Err(err).Msg("failed to produce block")
				continue
			}

			for _, record := range n.chain.GetEvents() {
				if record.Block == n.chain.GetBlock() {
					n.logger.Info().Uint64("block", record.Block).Str("source", record.Source).
						Interface("event", record.Event).Msg("event")
				}
			}
		}
	}
}

// serveMetrics serves the collectors of the packages until the context is
// done.
func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) error {
	registry := prometheus.NewRegistry()

	for _, collector := range relay.PromCollectors {
		err := registry.Register(collector)
		if err != nil {
			return xerrors.Errorf("failed to register collector: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")

		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Err(err).Msg("metrics server stopped")
		}
	}()

	return nil
}
