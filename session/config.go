// Package session implements the session lifecycle (C9, spec §4.8):
// process-group/rank setup, SessionContext construction and broadcast, mode
// dispatch to the query or worker packages, the closing barrier, and
// statistics reduction.
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/flowrec"
)

// Config is the fully-resolved set of session parameters, assembled from
// CLI flags and (coordinator-side only) an optional config-file overlay,
// before being split into the broadcast SessionContext and the
// coordinator-only connection parameters.
type Config struct {
	Rank      int
	WorldSize int
	Listen    string // coordinator: address to listen on
	Connect   string // worker: coordinator address to dial

	Mode     cmn.Mode
	Fields   flowrec.FieldSet
	Filter   string
	PathSpec string
	RangeStart, RangeEnd time.Time
	Rotation time.Duration
	N        int
	SortDesc bool
	UseTput  bool

	Progress     string
	ProgressDest string
	OutputFormat string // "pretty" or "csv"
	Compress     bool
	Verbosity    int
}

// LoadOverlay layers optional fdq.yaml/environment values under explicit
// CLI flags. Any rank given a config path reads it; a worker still takes
// its query parameters from the SessionContext the coordinator broadcasts
// over the wire. Grounded on
// the pack's viper+yaml.v3 configuration idiom: defaults are set first, the
// config file is merged in, then the caller re-applies any flags the user
// actually passed so CLI input always wins.
func LoadOverlay(configPath string, setDefaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("FDQ")
	v.AutomaticEnv()
	if setDefaults != nil {
		setDefaults(v)
	}
	if configPath == "" {
		return v, nil
	}
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, cmn.NewError(cmn.BadArgument, err, "reading config file %q", configPath)
	}
	return v, nil
}

// ParseFieldSpec builds a FieldSet from the CLI's repeated --field/--sum/
// --min/--max flag values and the --sort-field value, each value a single
// field name (spec §6 "flags select fields and aggregates").
func ParseFieldSpec(keys, sums, mins, maxs []string, sort string) (flowrec.FieldSet, error) {
	var fs flowrec.FieldSet
	add := func(names []string, role flowrec.Role) error {
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				continue
			}
			id, err := flowrec.ParseFieldID(n)
			if err != nil {
				return cmn.NewError(cmn.BadArgument, err, "parsing field spec")
			}
			fs.Columns = append(fs.Columns, flowrec.Column{Field: id, Role: role})
		}
		return nil
	}
	if err := add(keys, flowrec.RoleKey); err != nil {
		return fs, err
	}
	if err := add(sums, flowrec.RoleSum); err != nil {
		return fs, err
	}
	if err := add(mins, flowrec.RoleMin); err != nil {
		return fs, err
	}
	if err := add(maxs, flowrec.RoleMax); err != nil {
		return fs, err
	}
	if sort = strings.TrimSpace(sort); sort != "" {
		id, err := flowrec.ParseFieldID(sort)
		if err != nil {
			return fs, cmn.NewError(cmn.BadArgument, err, "parsing sort field")
		}
		fs.Columns = append(fs.Columns, flowrec.Column{Field: id, Role: flowrec.RoleSort})
	}
	if err := fs.Validate(); err != nil {
		return fs, cmn.NewError(cmn.BadArgument, err, "invalid field set")
	}
	return fs, nil
}

// SessionContext builds the broadcast-ready SessionContext from Config
// (spec §4.8 step 4).
func (c Config) SessionContext() cmn.SessionContext {
	return cmn.SessionContext{
		Mode:      c.Mode,
		Fields:    c.Fields,
		N:         c.N,
		Filter:    c.Filter,
		PathSpec:  c.PathSpec,
		TimeStart: c.RangeStart,
		TimeEnd:   c.RangeEnd,
		Rotation:  c.Rotation,
		UseTput:   c.UseTput,
		SortDesc:  c.SortDesc,
		Progress:  c.Progress,
		WorldSize: c.WorldSize,
		Compress:  c.Compress,
	}
}

// Validate checks the lifecycle-level invariants spec §4.8 step 2 imposes
// before any network I/O starts.
func (c Config) Validate() error {
	if c.WorldSize < 2 {
		return cmn.NewError(cmn.InsufficientParallelism, nil,
			"world size %d: need at least 1 coordinator + 1 worker", c.WorldSize)
	}
	if c.Rank < 0 || c.Rank >= c.WorldSize {
		return cmn.NewError(cmn.BadArgument, nil, "rank %d out of range [0,%d)", c.Rank, c.WorldSize)
	}
	switch c.Mode {
	case cmn.ModeList, cmn.ModeSort, cmn.ModeAggr, cmn.ModeMeta:
	default:
		return cmn.NewError(cmn.BadArgument, nil, "unknown mode %q", c.Mode)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("rank=%d/%d mode=%s path=%q n=%d tput=%v", c.Rank, c.WorldSize, c.Mode, c.PathSpec, c.N, c.UseTput)
}
