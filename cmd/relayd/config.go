package main

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"go.dedis.ch/relay/bridge/relayauth"
	"go.dedis.ch/relay/bridge/relayauth/types"
	"go.dedis.ch/relay/core/access"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Config is the configuration of a node. It is read from a YAML file, and the
// environment variables override the values of the file.
type Config struct {
	// DB is the path of the database.
	DB string `yaml:"db" env:"RELAYD_DB"`

	// Interval is the time between two blocks.
	Interval time.Duration `yaml:"interval" env:"RELAYD_INTERVAL"`

	// Metrics is the address of the metrics endpoint, disabled when empty.
	Metrics string `yaml:"metrics" env:"RELAYD_METRICS"`

	Authority AuthorityConfig `yaml:"authority" envPrefix:"RELAYD_AUTHORITY_"`

	Genesis []GenesisAccount `yaml:"genesis"`
}

// AuthorityConfig is the configuration of the relay authorities.
type AuthorityConfig struct {
	Name              string   `yaml:"name" env:"NAME"`
	RuntimeName       string   `yaml:"runtime_name" env:"RUNTIME_NAME"`
	MaxMembers        int      `yaml:"max_members" env:"MAX_MEMBERS"`
	MaxCandidates     int      `yaml:"max_candidates" env:"MAX_CANDIDATES"`
	MaxSchedules      int      `yaml:"max_schedules" env:"MAX_SCHEDULES"`
	TermDuration      uint64   `yaml:"term_duration" env:"TERM_DURATION"`
	SubmitDuration    uint64   `yaml:"submit_duration" env:"SUBMIT_DURATION"`
	ScheduleAlignment uint64   `yaml:"schedule_alignment" env:"SCHEDULE_ALIGNMENT"`
	DeferSync         bool     `yaml:"defer_sync" env:"DEFER_SYNC"`
	Council           []string `yaml:"council" env:"COUNCIL"`

	// SignThreshold is a percentage.
	SignThreshold uint32 `yaml:"sign_threshold" env:"SIGN_THRESHOLD"`
}

// GenesisAccount is an account of the genesis state, an authority when the
// stake is not zero.
type GenesisAccount struct {
	Account string `yaml:"account"`
	Balance uint64 `yaml:"balance"`
	Stake   uint64 `yaml:"stake"`

	// Signer is the hexadecimal address of the key on the external chain.
	Signer string `yaml:"signer"`
}

func defaultConfig() Config {
	def := relayauth.DefaultConfig()

	return Config{
		DB:       "relay.db",
		Interval: 6 * time.Second,
		Authority: AuthorityConfig{
			Name:              def.Name,
			RuntimeName:       def.RuntimeName,
			MaxMembers:        def.MaxMembers,
			MaxCandidates:     def.MaxCandidates,
			MaxSchedules:      def.MaxSchedules,
			TermDuration:      def.TermDuration,
			SubmitDuration:    def.SubmitDuration,
			ScheduleAlignment: def.ScheduleAlignment,
			SignThreshold:     60,
		},
	}
}

// loadConfig reads the file if the path is not empty, and then applies the
// environment.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, xerrors.Errorf("failed to read config: %v", err)
		}

		err = yaml.UnmarshalStrict(data, &config)
		if err != nil {
			return config, xerrors.Errorf("failed to parse config: %v", err)
		}
	}

	err := env.Parse(&config)
	if err != nil {
		return config, xerrors.Errorf("failed to parse env: %v", err)
	}

	return config, nil
}

// relayConfig returns the configuration of the relay authorities.
func (c AuthorityConfig) relayConfig() relayauth.Config {
	config := relayauth.DefaultConfig()

	config.Name = c.Name
	config.RuntimeName = c.RuntimeName
	config.MaxMembers = c.MaxMembers
	config.MaxCandidates = c.MaxCandidates
	config.MaxSchedules = c.MaxSchedules
	config.TermDuration = c.TermDuration
	config.SubmitDuration = c.SubmitDuration
	config.ScheduleAlignment = c.ScheduleAlignment
	config.DeferSync = c.DeferSync
	config.SignThreshold = types.FromPercent(c.SignThreshold)

	return config
}

// councilOrigin returns the predicate of the privileged operations: the root
// or a member of the council.
func (c AuthorityConfig) councilOrigin() access.Predicate {
	if len(c.Council) == 0 {
		return access.EnsureRoot()
	}

	members := make([]access.AccountID, len(c.Council))
	for i, member := range c.Council {
		members[i] = access.AccountID(member)
	}

	return access.EnsureMembers(members...)
}

func (g GenesisAccount) authority() (relayauth.GenesisAuthority, error) {
	if !common.IsHexAddress(g.Signer) {
		return relayauth.GenesisAuthority{}, xerrors.Errorf("invalid signer of %s: '%s'", g.Account, g.Signer)
	}

	authority := relayauth.GenesisAuthority{
		Account: access.AccountID(g.Account),
		Signer:  common.HexToAddress(g.Signer).Bytes(),
		Stake:   g.Stake,
	}

	return authority, nil
}
