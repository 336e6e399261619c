package relayauth

import (
	"encoding/binary"

	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/store"
	"go.dedis.ch/relay/core/store/prefixed"
	"golang.org/x/xerrors"
)

var (
	candidatesKey        = []byte("candidates")
	authoritiesKey       = []byte("authorities")
	nextAuthoritiesKey   = []byte("next_authorities")
	nextTermKey          = []byte("next_term")
	authoritiesToSignKey = []byte("authorities_to_sign")
	mmrKeysKey           = []byte("mmr_roots_to_sign_keys")
	mmrRootPrefix        = []byte("mmr_roots_to_sign:")
	submitDurationKey    = []byte("submit_duration")
)

// storage gives a typed access to the cells of an instance. Writing with a
// read-only storage panics.
type storage struct {
	r store.Readable
	w store.Writable
}

func (s *Service) reader(snap store.Readable) storage {
	return storage{r: prefixed.NewReadable(s.config.Name, snap)}
}

func (s *Service) writer(snap store.Snapshot) storage {
	p := prefixed.NewSnapshot(s.config.Name, snap)

	return storage{r: p, w: p}
}

func (st storage) candidates() ([]types.RelayAuthority, error) {
	var list []types.RelayAuthority
	_, err := st.get(candidatesKey, &list)

	return list, err
}

func (st storage) setCandidates(list []types.RelayAuthority) error {
	return st.put(candidatesKey, list)
}

func (st storage) authorities() ([]types.RelayAuthority, error) {
	var list []types.RelayAuthority
	_, err := st.get(authoritiesKey, &list)

	return list, err
}

func (st storage) setAuthorities(list []types.RelayAuthority) error {
	return st.put(authoritiesKey, list)
}

func (st storage) nextAuthorities() (*types.ScheduledAuthoritiesChange, error) {
	var change types.ScheduledAuthoritiesChange

	found, err := st.get(nextAuthoritiesKey, &change)
	if err != nil || !found {
		return nil, err
	}

	return &change, nil
}

func (st storage) setNextAuthorities(change types.ScheduledAuthoritiesChange) error {
	return st.put(nextAuthoritiesKey, change)
}

func (st storage) nextTerm() (uint32, error) {
	var term uint32
	_, err := st.get(nextTermKey, &term)

	return term, err
}

func (st storage) setNextTerm(term uint32) error {
	return st.put(nextTermKey, term)
}

func (st storage) authoritiesToSign() (*types.AuthoritiesToSign, error) {
	var toSign types.AuthoritiesToSign

	found, err := st.get(authoritiesToSignKey, &toSign)
	if err != nil || !found {
		return nil, err
	}

	return &toSign, nil
}

func (st storage) setAuthoritiesToSign(toSign types.AuthoritiesToSign) error {
	return st.put(authoritiesToSignKey, toSign)
}

func (st storage) mmrRootsToSignKeys() ([]uint64, error) {
	var keys []uint64
	_, err := st.get(mmrKeysKey, &keys)

	return keys, err
}

func (st storage) setMmrRootsToSignKeys(keys []uint64) error {
	return st.put(mmrKeysKey, keys)
}

func (st storage) mmrRootToSign(block uint64) (*types.MmrRootToSign, error) {
	var toSign types.MmrRootToSign

	found, err := st.get(mmrRootKey(block), &toSign)
	if err != nil || !found {
		return nil, err
	}

	return &toSign, nil
}

func (st storage) setMmrRootToSign(block uint64, toSign types.MmrRootToSign) error {
	return st.put(mmrRootKey(block), toSign)
}

// submitDuration returns the stored window, or the default when the cell is
// absent.
func (st storage) submitDuration(def uint64) (uint64, error) {
	duration := def
	_, err := st.get(submitDurationKey, &duration)

	return duration, err
}

func (st storage) setSubmitDuration(duration uint64) error {
	return st.put(submitDurationKey, duration)
}

func (st storage) get(key []byte, dst interface{}) (bool, error) {
	data, err := st.r.Get(key)
	if err != nil {
		return false, xerrors.Errorf("failed to read %s: %v", key, err)
	}

	if len(data) == 0 {
		return false, nil
	}

	err = types.Decode(data, dst)
	if err != nil {
		return false, xerrors.Errorf("invalid %s: %v", key, err)
	}

	return true, nil
}

func (st storage) put(key []byte, value interface{}) error {
	data, err := types.Encode(value)
	if err != nil {
		return err
	}

	err = st.w.Set(key, data)
	if err != nil {
		return xerrors.Errorf("failed to write %s: %v", key, err)
	}

	return nil
}

func (st storage) remove(key []byte) error {
	err := st.w.Delete(key)
	if err != nil {
		return xerrors.Errorf("failed to delete %s: %v", key, err)
	}

	return nil
}

func mmrRootKey(block uint64) []byte {
	key := make([]byte, len(mmrRootPrefix)+8)
	copy(key, mmrRootPrefix)
	binary.BigEndian.PutUint64(key[len(mmrRootPrefix):], block)

	return key
}
