package relayauth

import (
	"encoding/binary"
	"strings"

	"go.dedis.ch/relay/core/access"
	"go.dedis.ch/relay/core/execution"
	"go.dedis.ch/relay/core/execution/native"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/txn"
	"golang.org/x/xerrors"
)

const (
	// CmdArg is the argument's name to indicate the kind of command to run on
	// the contract. Should be one of the Command type.
	CmdArg = "relayauth:command"

	// StakeArg is the argument's name of the stake of a request, encoded as a
	// big-endian unsigned integer.
	StakeArg = "relayauth:stake"

	// SignerArg is the argument's name of the external signer of a request.
	SignerArg = "relayauth:signer"

	// AccountsArg is the argument's name of a comma-separated list of
	// accounts.
	AccountsArg = "relayauth:accounts"

	// BlockArg is the argument's name of a scheduled block, encoded as a
	// big-endian unsigned integer.
	BlockArg = "relayauth:block"

	// SignatureArg is the argument's name of a signature.
	SignatureArg = "relayauth:signature"
)

// Command defines a type of command for the relay authorities contract.
type Command string

const (
	// CmdRequestAuthority defines the command to become a candidate.
	CmdRequestAuthority Command = "REQUEST_AUTHORITY"

	// CmdCancelRequest defines the command to leave the candidate pool.
	CmdCancelRequest Command = "CANCEL_REQUEST"

	// CmdRenounceAuthority defines the command to leave the authority set.
	CmdRenounceAuthority Command = "RENOUNCE_AUTHORITY"

	// CmdAddAuthorities defines the command to promote candidates.
	CmdAddAuthorities Command = "ADD_AUTHORITIES"

	// CmdRemoveAuthorities defines the command to remove authorities.
	CmdRemoveAuthorities Command = "REMOVE_AUTHORITIES"

	// CmdKillCandidates defines the command to empty the candidate pool.
	CmdKillCandidates Command = "KILL_CANDIDATES"

	// CmdKillAuthorities defines the command to empty the authority set.
	CmdKillAuthorities Command = "KILL_AUTHORITIES"

	// CmdForceNewTerm defines the command to sync the pending change.
	CmdForceNewTerm Command = "FORCE_NEW_TERM"

	// CmdSubmitSignedAuthorities defines the command to sign the pending
	// change.
	CmdSubmitSignedAuthorities Command = "SUBMIT_SIGNED_AUTHORITIES"

	// CmdSubmitSignedMmrRoot defines the command to sign the root of a
	// scheduled block.
	CmdSubmitSignedMmrRoot Command = "SUBMIT_SIGNED_MMR_ROOT"
)

// RegisterContract registers the contract to the given execution service
// under the name of the instance.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(c.service.config.Name, c)
}

// Contract exposes the dispatchable operations of an instance.
//
// - implements native.Contract
type Contract struct {
	service *Service
}

// NewContract creates a new contract for the instance.
func NewContract(service *Service) Contract {
	return Contract{service: service}
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	var err error

	switch Command(cmd) {
	case CmdRequestAuthority:
		err = c.requestAuthority(snap, step)
	case CmdCancelRequest:
		err = c.service.CancelRequest(snap, step)
	case CmdRenounceAuthority:
		err = c.service.RenounceAuthority(snap, step)
	case CmdAddAuthorities:
		err = c.service.AddAuthorities(snap, step, accountsArg(step.Current))
	case CmdRemoveAuthorities:
		err = c.service.RemoveAuthorities(snap, step, accountsArg(step.Current))
	case CmdKillCandidates:
		err = c.service.KillCandidates(snap, step)
	case CmdKillAuthorities:
		err = c.service.KillAuthorities(snap, step)
	case CmdForceNewTerm:
		err = c.service.ForceNewTerm(snap, step)
	case CmdSubmitSignedAuthorities:
		err = c.service.SubmitSignedAuthorities(snap, step, step.Current.GetArg(SignatureArg))
	case CmdSubmitSignedMmrRoot:
		err = c.submitSignedMmrRoot(snap, step)
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	if err != nil {
		return xerrors.Errorf("failed to %s: %w", cmd, err)
	}

	return nil
}

func (c Contract) requestAuthority(snap store.Snapshot, step execution.Step) error {
	stake, err := uintArg(step.Current, StakeArg)
	if err != nil {
		return err
	}

	signer := step.Current.GetArg(SignerArg)
	if len(signer) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", SignerArg)
	}

	return c.service.RequestAuthority(snap, step, stake, signer)
}

func (c Contract) submitSignedMmrRoot(snap store.Snapshot, step execution.Step) error {
	block, err := uintArg(step.Current, BlockArg)
	if err != nil {
		return err
	}

	return c.service.SubmitSignedMmrRoot(snap, step, block, step.Current.GetArg(SignatureArg))
}

// MakeArgs returns the arguments of a call of the command to the instance.
func MakeArgs(name string, cmd Command, args ...txn.Arg) []txn.Arg {
	return append([]txn.Arg{
		{Key: native.ContractArg, Value: []byte(name)},
		{Key: CmdArg, Value: []byte(cmd)},
	}, args...)
}

// UintArg returns the argument of the key with an encoded integer.
func UintArg(key string, value uint64) txn.Arg {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)

	return txn.Arg{Key: key, Value: buffer}
}

// AccountsArgOf returns the argument of a list of accounts.
func AccountsArgOf(ids ...access.AccountID) txn.Arg {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}

	return txn.Arg{Key: AccountsArg, Value: []byte(strings.Join(parts, ","))}
}

func uintArg(tx txn.Transaction, key string) (uint64, error) {
	value := tx.GetArg(key)
	if len(value) != 8 {
		return 0, xerrors.Errorf("'%s' not found in tx arg", key)
	}

	return binary.BigEndian.Uint64(value), nil
}

func accountsArg(tx txn.Transaction) []access.AccountID {
	value := tx.GetArg(AccountsArg)
	if len(value) == 0 {
		return nil
	}

	parts := strings.Split(string(value), ",")

	ids := make([]access.AccountID, len(parts))
	for i, part := range parts {
		ids[i] = access.AccountID(part)
	}

	return ids
}
