package cli

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"github.com/urfave/cli"

	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/session"
)

// NewApp builds the fdq command-line app: one subcommand per query mode,
// matching the teacher's cli.App{Commands: [...]} shape (cmd/cli/commands).
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = "fdq"
	app.Usage = "distributed flow-record query engine"
	app.Commands = []cli.Command{
		{Name: "list", Usage: "stream matching records in arrival order", Flags: commonFlags, Action: runMode(cmn.ModeList)},
		{Name: "sort", Usage: "stream matching records sorted by --sort-field", Flags: commonFlags, Action: runMode(cmn.ModeSort)},
		{Name: "aggr", Usage: "aggregate matching records by --field key", Flags: commonFlags, Action: runMode(cmn.ModeAggr)},
		{Name: "meta", Usage: "report file and record counts only, no data rows", Flags: commonFlags, Action: runMode(cmn.ModeMeta)},
	}
	return app
}

// runMode returns the cli.ActionFunc for one query mode: build a
// session.Config from flags (and config-file overlay on the coordinator),
// run the session, and render the result (spec §4.8 steps 1-3, 9).
func runMode(mode cmn.Mode) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := configFromContext(c, mode)
		if err != nil {
			return err
		}
		setVerbosity(cfg.Verbosity)

		result, err := session.Run(cfg)
		if err != nil {
			return exitWithCode(err)
		}
		if cfg.Rank != 0 {
			return nil // workers have nothing to render
		}
		return Render(c.App.Writer, cfg.OutputFormat, cfg.Fields, result)
	}
}

func configFromContext(c *cli.Context, mode cmn.Mode) (session.Config, error) {
	v, err := session.LoadOverlay(c.String(configFlag.Name), setConfigDefaults)
	if err != nil {
		return session.Config{}, err
	}

	fs, err := session.ParseFieldSpec(
		c.StringSlice(fieldFlag.Name), c.StringSlice(sumFlag.Name),
		c.StringSlice(minFlag.Name), c.StringSlice(maxFlag.Name),
		flagOr(c, v, sortFieldFlag.Name),
	)
	if err != nil {
		return session.Config{}, err
	}

	start, err := parseTimeFlag(flagOr(c, v, timeStartFlag.Name))
	if err != nil {
		return session.Config{}, cmn.NewError(cmn.BadArgument, err, "parsing --time-start")
	}
	end, err := parseTimeFlag(flagOr(c, v, timeEndFlag.Name))
	if err != nil {
		return session.Config{}, cmn.NewError(cmn.BadArgument, err, "parsing --time-end")
	}

	return session.Config{
		Rank:         intFlagOr(c, v, rankFlag.Name),
		WorldSize:    intFlagOr(c, v, worldSizeFlag.Name),
		Listen:       flagOr(c, v, listenFlag.Name),
		Connect:      flagOr(c, v, coordinatorFlag.Name),
		Mode:         mode,
		Fields:       fs,
		Filter:       flagOr(c, v, filterFlag.Name),
		PathSpec:     flagOr(c, v, pathFlag.Name),
		RangeStart:   start,
		RangeEnd:     end,
		Rotation:     c.Duration(rotationFlag.Name),
		N:            intFlagOr(c, v, nFlag.Name),
		SortDesc:     c.Bool(descFlag.Name),
		UseTput:      c.Bool(tputFlag.Name),
		Progress:     flagOr(c, v, progressFlag.Name),
		ProgressDest: flagOr(c, v, progressDestFlag.Name),
		OutputFormat: flagOr(c, v, outputFlag.Name),
		Compress:     c.Bool(compressFlag.Name),
		Verbosity:    intFlagOr(c, v, verbosityFlag.Name),
	}, nil
}

// setConfigDefaults seeds the viper overlay with the same defaults the
// flags themselves carry, so an unset flag and an unset config key agree.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault(progressFlag.Name, "none")
	v.SetDefault(progressDestFlag.Name, "stderr")
	v.SetDefault(outputFlag.Name, "pretty")
}

// flagOr prefers an explicitly-set CLI flag, falling back to the viper
// overlay (config file or FDQ_* env var) so CLI input always wins (see
// session.LoadOverlay).
func flagOr(c *cli.Context, v *viper.Viper, name string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	return v.GetString(name)
}

func intFlagOr(c *cli.Context, v *viper.Viper, name string) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if v.IsSet(name) {
		return v.GetInt(name)
	}
	return c.Int(name)
}

func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// setVerbosity forwards --v to glog's own flag, since glog reads
// verbosity from the standard flag package rather than from a setter.
func setVerbosity(v int) {
	if v <= 0 {
		return
	}
	if f := flag.Lookup("v"); f != nil {
		f.Value.Set(strconv.Itoa(v))
	}
}

// exitWithCode maps a *cmn.Error to urfave/cli's ExitCoder so main can
// exit nonzero on any error code and zero only on Help (spec §6 "Exit
// codes: 0 success or --help; nonzero on any error code").
func exitWithCode(err error) error {
	code := cmn.CodeOf(err)
	if code == cmn.Help {
		fmt.Println(err)
		return cli.NewExitError("", 0)
	}
	return cli.NewExitError(err.Error(), int(code)+1)
}
