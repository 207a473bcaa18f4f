package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mixzter/duel/internal/match"
	"github.com/mixzter/duel/internal/mixzter"
)

type Config struct {
	dbPath   string
	player1  string
	player2  string
	category string
	resume   string
	latest   bool
	tokens   int
	seed     uint64
	verbose  bool
}

func (c *Config) validate() error {
	if _, err := mixzter.ParseCategory(c.category); err != nil {
		return err
	}
	if c.tokens < 0 || c.tokens > match.MaxSkipTokens {
		return fmt.Errorf("invalid --tokens (must be between 0-%d inclusive): %d", match.MaxSkipTokens, c.tokens)
	}
	if c.resume != "" && c.latest {
		return fmt.Errorf("--resume and --latest are mutually exclusive")
	}
	return nil
}

// bindEnv lets MIXZTER_<FLAG> environment variables fill in flags that were
// not given on the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
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
	v.SetEnvPrefix("MIXZTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "duel",
		Short:         "Hot-seat timeline duel: guess the release year of songs and build your timeline.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return play(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.dbPath, "db", "data/mixzter.db", "path to the match database (env: MIXZTER_DB)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "log engine transitions to stderr (env: MIXZTER_VERBOSE)")

	pf := cmd.Flags()
	pf.StringVar(&cfg.player1, "player1", "", "name of the first player (env: MIXZTER_PLAYER1)")
	pf.StringVar(&cfg.player2, "player2", "", "name of the second player (env: MIXZTER_PLAYER2)")
	pf.StringVarP(&cfg.category, "category", "c", string(mixzter.CategoryDefault), "song category (env: MIXZTER_CATEGORY)")
	pf.StringVarP(&cfg.resume, "resume", "r", "", "resume the match with this id (env: MIXZTER_RESUME)")
	pf.BoolVar(&cfg.latest, "latest", false, "resume the most recently played match (env: MIXZTER_LATEST)")
	pf.IntVar(&cfg.tokens, "tokens", match.DefaultSkipTokens, "skip tokens per player (env: MIXZTER_TOKENS)")
	pf.Uint64Var(&cfg.seed, "seed", 0, "seed for song selection, 0 picks one (env: MIXZTER_SEED)")

	bindEnv(v, fs)
	bindEnv(v, pf)

	cmd.AddCommand(newListCmd(cfg), newAbandonCmd(cfg), newCategoriesCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("duel v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newListCmd(cfg *Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored matches, most recent first.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listMatches(cmd.Context(), cfg, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of matches to show")
	return cmd
}

func newAbandonCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <match-id>",
		Short: "Delete a stored match.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return abandonMatch(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
		},
	}
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show the song categories.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, c := range mixzter.Categories() {
				cfg := c.Config()
				fmt.Fprintf(out, "%-14s %s (%d-%d)\n", c, cfg.Label, cfg.FromYear, cfg.ToYear)
			}
			return nil
		},
	}
}
