package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	ucli "github.com/urfave/cli/v2"
	"go.dedis.ch/relay/bridge/relayauth"
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/store/kv"
	"go.dedis.ch/relay/core/txn"
	"go.dedis.ch/relay/crypto/ecdsa"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// action implements the commands of the node. The output is written to out.
type action struct {
	out io.Writer
}

func (a action) start(c *ucli.Context) error {
	config, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	n, db, err := openNode(config)
	if err != nil {
		return err
	}

	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Metrics != "" {
		err = serveMetrics(ctx, config.Metrics, n.logger)
		if err != nil {
			return err
		}
	}

	n.logger.Info().Uint64("block", n.chain.GetBlock()).
		Dur("interval", config.Interval).Msg("node started")

	n.run(ctx, config.Interval)

	n.logger.Info().Uint64("block", n.chain.GetBlock()).Msg("node stopped")

	return nil
}

// state is the printable state of the relay authorities.
type state struct {
	Block       uint64      `yaml:"block"`
	NextTerm    uint32      `yaml:"next_term"`
	Candidates  []authority `yaml:"candidates"`
	Authorities []authority `yaml:"authorities"`
	Next        *pending    `yaml:"next,omitempty"`
	Schedules   []schedule  `yaml:"schedules"`
	Duration    uint64      `yaml:"submit_duration"`
}

type authority struct {
	Account string `yaml:"account"`
	Signer  string `yaml:"signer"`
	Stake   uint64 `yaml:"stake"`
	Term    uint64 `yaml:"term"`
}

type pending struct {
	Deadline    uint64      `yaml:"deadline"`
	Authorities []authority `yaml:"authorities"`
	Message     string      `yaml:"message,omitempty"`
	Signatures  []string    `yaml:"signatures,omitempty"`
}

type schedule struct {
	Block      uint64   `yaml:"block"`
	Root       string   `yaml:"root,omitempty"`
	Message    string   `yaml:"message,omitempty"`
	Signatures []string `yaml:"signatures,omitempty"`
}

func (a action) inspect(c *ucli.Context) error {
	config, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	n, db, err := openNode(config)
	if err != nil {
		return err
	}

	defer db.Close()

	var st state

	err = n.chain.View(func(snap store.Readable) error {
		st, err = n.readState(snap)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read state: %v", err)
	}

	st.Block = n.chain.GetBlock()

	data, err := yaml.Marshal(st)
	if err != nil {
		return xerrors.Errorf("failed to marshal state: %v", err)
	}

	_, err = a.out.Write(data)
	return err
}

func (n *node) readState(snap store.Readable) (state, error) {
	var st state

	candidates, err := n.authorities.GetCandidates(snap)
	if err != nil {
		return st, err
	}

	authorities, err := n.authorities.GetAuthorities(snap)
	if err != nil {
		return st, err
	}

	st.Candidates = printable(candidates)
	st.Authorities = printable(authorities)

	st.NextTerm, err = n.authorities.GetNextTerm(snap)
	if err != nil {
		return st, err
	}

	st.Duration, err = n.authorities.GetSubmitDuration(snap)
	if err != nil {
		return st, err
	}

	next, err := n.authorities.GetNextAuthorities(snap)
	if err != nil {
		return st, err
	}

	if next != nil {
		st.Next = &pending{
			Deadline:    next.Deadline,
			Authorities: printable(next.NextAuthorities),
		}

		toSign, err := n.authorities.GetAuthoritiesToSign(snap)
		if err != nil {
			return st, err
		}

		if toSign != nil {
			st.Next.Message = hex.EncodeToString(toSign.Message)
			st.Next.Signatures = signatures(toSign.Signatures)
		}
	}

	keys, err := n.authorities.GetMmrRootsToSignKeys(snap)
	if err != nil {
		return st, err
	}

	for _, key := range keys {
		sched := schedule{Block: key}

		toSign, err := n.authorities.GetMmrRootToSign(snap, key)
		if err != nil {
			return st, err
		}

		if toSign != nil {
			message, err := n.authorities.MmrRootMessage(key, toSign.MmrRoot)
			if err != nil {
				return st, err
			}

			sched.Root = hex.EncodeToString(toSign.MmrRoot)
			sched.Message = hex.EncodeToString(message)
			sched.Signatures = signatures(toSign.Signatures)
		}

		st.Schedules = append(st.Schedules, sched)
	}

	return st, nil
}

func (a action) call(c *ucli.Context) error {
	config, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	args, err := callArgs(config.Authority.Name, c)
	if err != nil {
		return err
	}

	n, db, err := openNode(config)
	if err != nil {
		return err
	}

	defer db.Close()

	res, err := n.chain.Dispatch(txn.NewCall(parseOrigin(c.String("origin")), args...))
	if err != nil {
		return xerrors.Errorf("failed to dispatch: %v", err)
	}

	if !res.Accepted {
		return xerrors.Errorf("call rejected: %s", res.Message)
	}

	fmt.Fprintln(a.out, "accepted")

	return nil
}

func (a action) keygen(c *ucli.Context) error {
	signer, err := ecdsa.NewSigner()
	if err != nil {
		return xerrors.Errorf("failed to generate key: %v", err)
	}

	key, err := signer.MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal key: %v", err)
	}

	fmt.Fprintf(a.out, "key: %x\naddress: %s\n", key, common.BytesToAddress(signer.GetPublicKey()).Hex())

	return nil
}

func (a action) sign(c *ucli.Context) error {
	signer, err := ecdsa.NewSignerFromHex(strings.TrimPrefix(c.String("key"), "0x"))
	if err != nil {
		return xerrors.Errorf("invalid key: %v", err)
	}

	message, err := hex.DecodeString(strings.TrimPrefix(c.String("message"), "0x"))
	if err != nil {
		return xerrors.Errorf("invalid message: %v", err)
	}

	signature, err := signer.Sign(message)
	if err != nil {
		return xerrors.Errorf("failed to sign: %v", err)
	}

	fmt.Fprintf(a.out, "%x\n", signature)

	return nil
}

func openNode(config Config) (*node, kv.DB, error) {
	db, err := kv.New(config.DB)
	if err != nil {
		return nil, nil, err
	}

	n, err := newNode(config, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	return n, db, nil
}

// callArgs returns the arguments of the call described by the flags.
func callArgs(name string, c *ucli.Context) ([]txn.Arg, error) {
	var args []txn.Arg

	if c.IsSet("stake") {
		args = append(args, relayauth.UintArg(relayauth.StakeArg, c.Uint64("stake")))
	}

	if c.IsSet("signer") {
		if !common.IsHexAddress(c.String("signer")) {
			return nil, xerrors.Errorf("invalid signer: '%s'", c.String("signer"))
		}

		args = append(args, txn.Arg{
			Key:   relayauth.SignerArg,
			Value: common.HexToAddress(c.String("signer")).Bytes(),
		})
	}

	if c.IsSet("account") {
		var ids []access.AccountID
		for _, account := range c.StringSlice("account") {
			ids = append(ids, access.AccountID(account))
		}

		args = append(args, relayauth.AccountsArgOf(ids...))
	}

	if c.IsSet("block") {
		args = append(args, relayauth.UintArg(relayauth.BlockArg, c.Uint64("block")))
	}

	if c.IsSet("signature") {
		signature, err := hex.DecodeString(strings.TrimPrefix(c.String("signature"), "0x"))
		if err != nil {
			return nil, xerrors.Errorf("invalid signature: %v", err)
		}

		args = append(args, txn.Arg{Key: relayauth.SignatureArg, Value: signature})
	}

	cmd := relayauth.Command(strings.ToUpper(c.String("command")))

	return relayauth.MakeArgs(name, cmd, args...), nil
}

func parseOrigin(value string) access.Origin {
	if value == "root" {
		return access.Root()
	}

	return access.Signed(access.AccountID(value))
}

func printable(list []types.RelayAuthority) []authority {
	res := make([]authority, len(list))
	for i, a := range list {
		res[i] = authority{
			Account: a.AccountID,
			Signer:  hex.EncodeToString(a.Signer),
			Stake:   a.Stake,
			Term:    a.Term,
		}
	}

	return res
}

func signatures(list []types.SignedBy) []string {
	res := make([]string, len(list))
	for i, s := range list {
		res[i] = fmt.Sprintf("%s:%x", s.AccountID, s.Signature)
	}

	return res
}
