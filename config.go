package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/yanggeonha/fakefinder/game"
)

type Config struct {
	bind           string
	configFile     string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	creatorPolicy string
	maxRooms      int
	maxTeams      int
	minGuessers   int
	resetPolicy   string
	rounds        int
	stages        int
	tick          time.Duration
	timeLimit     int
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	if err := c.gameOptions().Validate(); err != nil {
		return fmt.Errorf("invalid game options: %w", err)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// gameOptions maps the flags onto the game package's variant settings.
func (c *Config) gameOptions() game.Options {
	opts := game.DefaultOptions()

	opts.CreatorPolicy = game.CreatorPolicy(c.creatorPolicy)
	opts.MaxRooms = c.maxRooms
	opts.MaxRounds = c.rounds
	opts.MaxStages = c.stages
	opts.MaxTeams = c.maxTeams
	opts.MinGuessers = c.minGuessers
	opts.ResetPolicy = game.ResetPolicy(c.resetPolicy)
	opts.TickInterval = c.tick
	opts.TimeLimit = c.timeLimit
	opts.Logf = func(format string, args ...any) {
		logf(c, format, args...)
	}

	return opts
}

// applyEnv fills every flag the user did not set from the config file or the
// FAKEFINDER_* environment.
func applyEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("FAKEFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := game.DefaultOptions()

	cmd := &cobra.Command{
		Use:           "fakefinder",
		Short:         "A counterfeit-bill guessing party game, served over websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.configFile == "" {
				cfg.configFile = v.GetString("config")
			}
			if cfg.configFile != "" {
				v.SetConfigFile(cfg.configFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config file: %w", err)
				}
			}
			applyEnv(v, cmd.Flags())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: FAKEFINDER_BIND)")
	fs.StringVarP(&cfg.configFile, "config", "c", "", "path to a config file with flag names as keys (env: FAKEFINDER_CONFIG)")
	fs.StringVar(&cfg.creatorPolicy, "creator-policy", string(defaults.CreatorPolicy), "who builds the secret bill: fixed (host) or rotating (env: FAKEFINDER_CREATOR_POLICY)")
	fs.IntVar(&cfg.maxRooms, "max-rooms", defaults.MaxRooms, "maximum number of concurrent rooms (env: FAKEFINDER_MAX_ROOMS)")
	fs.IntVar(&cfg.maxTeams, "max-teams", defaults.MaxTeams, "maximum teams per room, host included (env: FAKEFINDER_MAX_TEAMS)")
	fs.IntVar(&cfg.minGuessers, "min-guessers", defaults.MinGuessers, "guessers required to start a game (env: FAKEFINDER_MIN_GUESSERS)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: FAKEFINDER_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: FAKEFINDER_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: FAKEFINDER_PROFILE)")
	fs.StringVar(&cfg.resetPolicy, "reset-policy", string(defaults.ResetPolicy), "roster after a reset: keep or host (env: FAKEFINDER_RESET_POLICY)")
	fs.IntVar(&cfg.rounds, "rounds", defaults.MaxRounds, "rounds per stage (env: FAKEFINDER_ROUNDS)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are closed, 0 to disable (env: FAKEFINDER_SESSION_TIMEOUT)")
	fs.IntVar(&cfg.stages, "stages", defaults.MaxStages, "stages per game (env: FAKEFINDER_STAGES)")
	fs.DurationVar(&cfg.tick, "tick", defaults.TickInterval, "length of one timer unit (env: FAKEFINDER_TICK)")
	fs.IntVar(&cfg.timeLimit, "time-limit", defaults.TimeLimit, "timer units per guessing round (env: FAKEFINDER_TIME_LIMIT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: FAKEFINDER_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: FAKEFINDER_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: FAKEFINDER_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: FAKEFINDER_VERSION)")

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("fakefinder v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
