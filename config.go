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
	bind           string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	backendURL      string
	backendKey      string
	backendModel    string
	backendTimeout  time.Duration
	contentAttempts int

	revealDelay     time.Duration
	decisionDelay   time.Duration
	answerDelay     time.Duration
	scoreboardDelay time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.contentAttempts < 1 {
		return fmt.Errorf("invalid content attempt bound: %d", c.contentAttempts)
	}
	for _, d := range []time.Duration{c.revealDelay, c.decisionDelay, c.answerDelay, c.scoreboardDelay} {
		if d <= 0 {
			return errors.New("reveal delays must be positive")
		}
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
	v.SetEnvPrefix("TRIVIABOX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "triviabox",
		Short:         "A real-time trivia server pairing one board display with phone-based players.",
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

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: TRIVIABOX_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: TRIVIABOX_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: TRIVIABOX_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: TRIVIABOX_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: TRIVIABOX_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: TRIVIABOX_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: TRIVIABOX_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: TRIVIABOX_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: TRIVIABOX_VERSION)")

	fs.StringVar(&cfg.backendURL, "backend-url", "https://api.openai.com/v1/chat/completions", "chat completion endpoint used to generate categories (env: TRIVIABOX_BACKEND_URL)")
	fs.StringVar(&cfg.backendKey, "backend-key", "", "api key for the generation backend (env: TRIVIABOX_BACKEND_KEY)")
	fs.StringVar(&cfg.backendModel, "backend-model", "gpt-4o-mini", "model requested from the generation backend (env: TRIVIABOX_BACKEND_MODEL)")
	fs.DurationVar(&cfg.backendTimeout, "backend-timeout", 60*time.Second, "per-request timeout for the generation backend (env: TRIVIABOX_BACKEND_TIMEOUT)")
	fs.IntVar(&cfg.contentAttempts, "content-attempts", 40, "backend attempts before a game is declared unavailable (env: TRIVIABOX_CONTENT_ATTEMPTS)")

	fs.DurationVar(&cfg.revealDelay, "reveal-delay", 5*time.Second, "time a submitted answer is shown before the verdict (env: TRIVIABOX_REVEAL_DELAY)")
	fs.DurationVar(&cfg.decisionDelay, "decision-delay", 5*time.Second, "time the verdict is shown before the game advances (env: TRIVIABOX_DECISION_DELAY)")
	fs.DurationVar(&cfg.answerDelay, "answer-delay", 5*time.Second, "time the correct answer is shown after everyone has missed (env: TRIVIABOX_ANSWER_DELAY)")
	fs.DurationVar(&cfg.scoreboardDelay, "scoreboard-delay", 5*time.Second, "time the scoreboard is shown before returning to the board (env: TRIVIABOX_SCOREBOARD_DELAY)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("triviabox v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
