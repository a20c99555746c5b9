package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"l10n-phrasebook/internal/config"
	"l10n-phrasebook/internal/filewalker"
	"l10n-phrasebook/internal/graph"
	"l10n-phrasebook/internal/phrasebook"
	"l10n-phrasebook/internal/store"
	"l10n-phrasebook/internal/textutil"
	"l10n-phrasebook/internal/watcher"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "phrasebook",
		Short: "Index and look up localized phrases in cfg files",
		Long: `Indexes the Localization blocks of .cfg files into a phrasebook of
translation keys and their per-language versions, and looks up the phrase
under a cursor position in arbitrary text.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("format", formatText, "Output format: text, json, yaml or tsv")

	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(exportCmd())

	return rootCmd
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <directory>...",
		Short: "Index cfg files and print every phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return runIndex(cmd.Context(), cmd.OutOrStdout(), args, format)
		},
	}
}

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <directory> <text> <offset>",
		Short: "Find the phrase covering a byte offset of text",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid offset %q: %w", args[2], err)
			}
			format, _ := cmd.Flags().GetString("format")
			return runLookup(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], offset, format)
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <directory>",
		Short: "Keep the index current and answer lookups read from stdin",
		Long: `Indexes the directory, follows changes to its cfg files and answers one
lookup per stdin line. Each line is "<offset> <text>".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return runWatch(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0], format)
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <directory>...",
		Short: "Index cfg files into PostgreSQL and Neo4j",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			usePostgres, _ := cmd.Flags().GetBool("postgres")
			useNeo4j, _ := cmd.Flags().GetBool("neo4j")
			missing, _ := cmd.Flags().GetString("missing")
			return runExport(cmd.Context(), cmd.OutOrStdout(), args, exportOptions{
				postgres: usePostgres,
				neo4j:    useNeo4j,
				missing:  missing,
			})
		},
	}

	cmd.Flags().Bool("postgres", true, "Store phrase versions in PostgreSQL (DATABASE_URL)")
	cmd.Flags().Bool("neo4j", true, "Build the phrase graph in Neo4j (NEO4J_URI)")
	cmd.Flags().String("missing", "", "After exporting, list phrases without a version in this language")

	return cmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func loadConfig() *config.Config {
	cfg := config.Load()
	zerolog.SetGlobalLevel(cfg.LogLevel)
	return cfg
}

// buildIndex indexes the cfg files under dirs and waits for loading to finish.
func buildIndex(ctx context.Context, cfg *config.Config, dirs []string, opts ...phrasebook.Option) (*phrasebook.Index, error) {
	idx := phrasebook.New(append(cfg.Options(), opts...)...)
	idx.Load(ctx, filewalker.NewWalker(dirs...).Enumerate)
	if err := idx.Wait(ctx); err != nil {
		return nil, err
	}

	loadErrs := idx.LoadErrors()
	for _, err := range loadErrs {
		log.Warn().Err(err).Msg("Load error")
	}
	if len(idx.TrackedFiles()) == 0 && len(loadErrs) > 0 {
		return nil, fmt.Errorf("load phrasebook: %w", errors.Join(loadErrs...))
	}

	log.Info().
		Int("files", len(idx.TrackedFiles())).
		Int("phrases", idx.Len()).
		Str("root", idx.WatchRoot()).
		Msg("Phrasebook loaded")
	return idx, nil
}

// runIndex handles the `index` command.
func runIndex(ctx context.Context, w io.Writer, dirs []string, format string) error {
	ctx, cancel := setupContext(ctx)
	defer cancel()

	idx, err := buildIndex(ctx, loadConfig(), dirs)
	if err != nil {
		return err
	}
	return writePhrases(w, idx.Phrases(), format)
}

// runLookup handles the `lookup` command.
func runLookup(ctx context.Context, w io.Writer, dir, text string, offset int, format string) error {
	ctx, cancel := setupContext(ctx)
	defer cancel()

	idx, err := buildIndex(ctx, loadConfig(), []string{dir})
	if err != nil {
		return err
	}

	session := idx.Open()
	defer session.Close()

	m, ok, err := session.Lookup(ctx, text, offset)
	if err != nil {
		return err
	}
	if !ok {
		log.Info().Str("text", textutil.Truncate(text, 30)).Int("offset", offset).Msg("No phrase found")
		return nil
	}
	return writeMatch(w, m, format)
}

// runWatch handles the `watch` command.
func runWatch(ctx context.Context, in io.Reader, w io.Writer, dir, format string) error {
	ctx, cancel := setupContext(ctx)
	defer cancel()

	cfg := loadConfig()
	idx := phrasebook.New(cfg.Options()...)

	fw, err := watcher.New(idx)
	if err != nil {
		return err
	}
	defer fw.Close()

	watchErr := make(chan error, 1)
	go func() { watchErr <- fw.Run(ctx) }()

	idx.Load(ctx, filewalker.NewWalker(dir).Enumerate)

	session := idx.Open()
	defer session.Close()

	lines := readLines(ctx, in)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			return err
		case line, ok := <-lines:
			if !ok {
				// stdin closed, keep following changes until interrupted.
				lines = nil
				continue
			}
			if err := answer(ctx, session, w, line, format); err != nil {
				log.Warn().Err(err).Str("line", textutil.Truncate(line, 30)).Msg("Lookup failed")
			}
		}
	}
}

// readLines streams the lines of in until EOF or ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func answer(ctx context.Context, session *phrasebook.Session, w io.Writer, line, format string) error {
	rawOffset, text, found := strings.Cut(strings.TrimSpace(line), " ")
	if !found {
		return errors.New("expected \"<offset> <text>\"")
	}
	offset, err := strconv.Atoi(rawOffset)
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", rawOffset, err)
	}

	m, ok, err := session.Lookup(ctx, text, offset)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, "no match")
		return nil
	}
	return writeMatch(w, m, format)
}

type exportOptions struct {
	postgres bool
	neo4j    bool
	missing  string
}

// runExport handles the `export` command.
func runExport(ctx context.Context, w io.Writer, dirs []string, eo exportOptions) error {
	ctx, cancel := setupContext(ctx)
	defer cancel()

	if !eo.postgres && !eo.neo4j {
		return errors.New("nothing to export: both --postgres and --neo4j are disabled")
	}

	cfg := loadConfig()

	var sinks []phrasebook.Option
	var phraseStore *store.PhraseStore
	var graphQuerier *graph.GraphQuerier

	if eo.postgres {
		pgPool, err := connectPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer pgPool.Close()

		phraseStore = store.NewPhraseStore(pgPool)
		if err := phraseStore.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure phrase schema: %w", err)
		}
		sinks = append(sinks, phrasebook.WithSink(phraseStore))
	}

	if eo.neo4j {
		neo4jDriver, err := connectNeo4j(ctx, cfg)
		if err != nil {
			return err
		}
		defer neo4jDriver.Close(ctx)

		graphBuilder := graph.NewGraphBuilder(neo4jDriver)
		if err := graphBuilder.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
		sinks = append(sinks, phrasebook.WithSink(graphBuilder))
		graphQuerier = graph.NewGraphQuerier(neo4jDriver)
	}

	idx, err := buildIndex(ctx, cfg, dirs, sinks...)
	if err != nil {
		return err
	}

	if phraseStore != nil {
		n, err := phraseStore.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "postgres: %d versions stored\n", n)
	}

	if graphQuerier != nil {
		coverage, err := graphQuerier.Coverage(ctx)
		if err != nil {
			return err
		}
		for _, c := range coverage {
			fmt.Fprintf(w, "neo4j: %s covers %d of %d phrases\n", c.Language, c.Phrases, idx.Len())
		}

		if eo.missing != "" {
			names, err := graphQuerier.MissingTranslations(ctx, eo.missing)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintf(w, "missing %s: %s\n", eo.missing, name)
			}
		}
	}

	log.Info().
		Int("files", len(idx.TrackedFiles())).
		Int("phrases", idx.Len()).
		Msg("Export complete")
	return nil
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return pgPool, nil
}

func connectNeo4j(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}

	if err := neo4jDriver.VerifyConnectivity(ctx); err != nil {
		neo4jDriver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")
	return neo4jDriver, nil
}
