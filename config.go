package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Seednode/framematch/games/frames"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	storeMemory = "memory"
	storeFile   = "file"
	storeSQLite = "sqlite"
)

type Config struct {
	bind           string
	catalog        string
	dataDir        string
	images         string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	store          string
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
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
	return c.validateStore()
}

func (c *Config) validateStore() error {
	switch c.store {
	case storeMemory, storeFile, storeSQLite:
	default:
		return fmt.Errorf("invalid store (must be one of memory, file, sqlite): %q", c.store)
	}
	if c.store != storeMemory && c.dataDir == "" {
		return fmt.Errorf("--data-dir is required for the %s store", c.store)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// loadCatalog returns the built-in catalog unless --catalog names a file.
func (c *Config) loadCatalog() (*frames.Catalog, error) {
	if c.catalog == "" {
		return frames.DefaultCatalog(), nil
	}

	f, err := os.Open(c.catalog)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	catalog, err := frames.LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.catalog, err)
	}
	return catalog, nil
}

func (c *Config) openBackend() (frames.Backend, error) {
	switch c.store {
	case storeFile:
		return frames.NewFileBackend(c.dataDir)
	case storeSQLite:
		return frames.OpenSQLite(filepath.Join(c.dataDir, "framematch.db"))
	default:
		return frames.NewMemoryBackend(), nil
	}
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

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
	v.SetEnvPrefix("FRAMEMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "framematch",
		Short:         "Match movie titles to their still frames, in the browser or the terminal.",
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

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&cfg.catalog, "catalog", "", "path to a YAML catalog of items to match (env: FRAMEMATCH_CATALOG)")
	pfs.StringVar(&cfg.dataDir, "data-dir", "data", "directory holding saved games (env: FRAMEMATCH_DATA_DIR)")
	pfs.StringVar(&cfg.store, "store", storeFile, "where to save games: memory, file or sqlite (env: FRAMEMATCH_STORE)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: FRAMEMATCH_VERBOSE)")

	fs := cmd.Flags()
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: FRAMEMATCH_BIND)")
	fs.StringVar(&cfg.images, "images", "img", "directory of frame stills named img-<id>.webp (env: FRAMEMATCH_IMAGES)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: FRAMEMATCH_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: FRAMEMATCH_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: FRAMEMATCH_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle games are unloaded from memory (env: FRAMEMATCH_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: FRAMEMATCH_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: FRAMEMATCH_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: FRAMEMATCH_VERSION)")

	bindFlags(v, pfs)
	bindFlags(v, fs)

	cmd.AddCommand(newPlayCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("framematch v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newPlayCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal, saving progress to the local game slot.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateStore(); err != nil {
				return err
			}
			return playLocal(cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
