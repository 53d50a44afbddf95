package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind        string
	dictionary  string
	fragments   string
	idleTimeout time.Duration
	port        int
	prefix      string
	profile     bool
	tlsCert     string
	tlsKey      string
	turnGrace   time.Duration
	verbose     bool
	version     bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.turnGrace <= 0 {
		return fmt.Errorf("invalid turn grace period: %s", c.turnGrace)
	}
	if c.idleTimeout <= 0 {
		return fmt.Errorf("invalid idle timeout: %s", c.idleTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PALABOMBA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "palabomba",
		Short:         "A realtime pass-the-bomb word game, where the slowest speller loses.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: PALABOMBA_BIND)")
	fs.StringVar(&cfg.dictionary, "dictionary", "", "path to a word list, one word per line (env: PALABOMBA_DICTIONARY)")
	fs.StringVar(&cfg.fragments, "fragments", "", "path to a precomputed fragment table (env: PALABOMBA_FRAGMENTS)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", 30*time.Second, "time before disconnected lobby players are removed (env: PALABOMBA_IDLE_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: PALABOMBA_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: PALABOMBA_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: PALABOMBA_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: PALABOMBA_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: PALABOMBA_TLS_KEY)")
	fs.DurationVar(&cfg.turnGrace, "turn-grace", 2*time.Second, "grace period before a disconnected turn holder explodes (env: PALABOMBA_TURN_GRACE)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PALABOMBA_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: PALABOMBA_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("palabomba v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
