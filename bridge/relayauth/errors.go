package relayauth

import "golang.org/x/xerrors"

var (
	// ErrTooManyMembers is returned when a bounded list is full.
	ErrTooManyMembers = xerrors.New("too many members")

	// ErrCandidateAE is returned when the account is already a candidate.
	ErrCandidateAE = xerrors.New("candidate already exists")

	// ErrCandidateNE is returned when the account is not a candidate.
	ErrCandidateNE = xerrors.New("candidate does not exist")

	// ErrAuthorityAE is returned when the account is already a current or an
	// incoming authority.
	ErrAuthorityAE = xerrors.New("authority already exists")

	// ErrAuthorityNE is returned when the account is not a current authority.
	ErrAuthorityNE = xerrors.New("authority does not exist")

	// ErrAuthorityIT is returned when an authority renounces before the end of
	// its term.
	ErrAuthorityIT = xerrors.New("authority in term")

	// ErrAuthoritiesCountTL is returned when a change would leave no
	// authority.
	ErrAuthoritiesCountTL = xerrors.New("authorities count too low")

	// ErrStakeIns is returned when the stake is higher than the free balance,
	// or too low to enter a full pool.
	ErrStakeIns = xerrors.New("insufficient stake")

	// ErrOnAuthoritiesChangeDis is returned when a call is disallowed in the
	// current state of the rotation.
	ErrOnAuthoritiesChangeDis = xerrors.New("disabled by the authorities change")

	// ErrScheduledSignNE is returned when there is no open collection for the
	// block.
	ErrScheduledSignNE = xerrors.New("scheduled sign does not exist")

	// ErrSignatureInv is returned when a signature does not verify.
	ErrSignatureInv = xerrors.New("invalid signature")

	// ErrTermMis is returned when the term does not match the next term.
	ErrTermMis = xerrors.New("term mismatched")

	// ErrAuthoritiesMis is returned when the signers do not match the incoming
	// authorities.
	ErrAuthoritiesMis = xerrors.New("authorities mismatched")

	// ErrNextAuthoritiesNE is returned when there is no pending change.
	ErrNextAuthoritiesNE = xerrors.New("next authorities do not exist")

	// ErrTooManySchedules is returned when the schedule is full.
	ErrTooManySchedules = xerrors.New("too many schedules")
)
