// po-translator — resumable machine translation for gettext PO catalogs.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/BemoBit/po-translator/backend"
	"github.com/BemoBit/po-translator/cache"
	"github.com/BemoBit/po-translator/checkpoint"
	"github.com/BemoBit/po-translator/config"
	"github.com/BemoBit/po-translator/i18n"
	"github.com/BemoBit/po-translator/langmeta"
	"github.com/BemoBit/po-translator/lockfile"
	"github.com/BemoBit/po-translator/logger"
	"github.com/BemoBit/po-translator/pipeline"
	"github.com/BemoBit/po-translator/pofile"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "po-translator",
		Short: "Resumable machine translation for gettext PO files",
		Long: `po-translator — resumable machine translation for gettext PO files.

Translates untranslated entries of a PO catalog through a free
translation service (Google, LibreTranslate, or MyMemory), with a
durable translation cache, periodic checkpoints of partial progress,
and graceful interruption: Ctrl+C finishes the current batch, saves
everything translated so far, and the next run resumes from there.

Commands:
  translate   Translate a PO catalog (the main workflow)
  stats       Show translation statistics for a catalog
  languages   List supported target language codes
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTranslateCmd(),
		newStatsCmd(),
		newLanguagesCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	defer logger.Sync()
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("po-translator version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// languages
// ---------------------------------------------------------------------------

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported target language codes",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(i18n.T("Supported languages:"))
			for _, code := range langmeta.Known() {
				meta := langmeta.Registry[code]
				fmt.Printf("  %-6s %s (%s)\n", code, meta.Name, meta.Native)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// stats
// ---------------------------------------------------------------------------

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file.po>",
		Short: "Show translation statistics for a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := pofile.Load(args[0])
			if err != nil {
				return err
			}

			total, translated, fuzzy, untranslated := cat.Stats()
			percent := 0
			if total > 0 {
				percent = translated * 100 / total
			}

			lang := cat.HeaderField("Language")
			if lang != "" {
				fmt.Printf("Language:     %s (%s)\n", lang, langmeta.Name(lang))
			}
			fmt.Printf("Entries:      %d\n", total)
			fmt.Printf("Translated:   %d (%d%%)\n", translated, percent)
			fmt.Printf("Fuzzy:        %d\n", fuzzy)
			fmt.Printf("Untranslated: %d\n", untranslated)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	output       string
	service      string
	sourceLang   string
	targetLang   string
	batchSize    int
	saveInterval int
	workers      int
	requestDelay time.Duration
	retranslate  bool
	noCache      bool
	libreURL     string
	email        string
	verbose      bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate <file.po>",
		Short: "Translate a PO catalog",
		Long: `Translate the untranslated entries of a PO catalog.

The source language is read from the catalog metadata when --source is
not given. Progress is checkpointed periodically, so an interrupted run
(Ctrl+C) keeps everything translated so far; running the same command
again resumes with the remaining entries. Translations are cached next
to the catalog and reused across runs.

Examples:
  # Translate to Persian with Google Translate (default service)
  po-translator translate messages.po --target fa

  # Resume an interrupted run (same command, picks up where it left off)
  po-translator translate messages.po --target fa

  # Use a self-hosted LibreTranslate with 5 workers
  po-translator translate messages.po -t de -s libretranslate \
      --libretranslate-url http://localhost:5000/translate --workers 5

  # Re-translate everything, ignoring existing translations
  po-translator translate messages.po -t fr --retranslate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args[0], a)
		},
	}

	cmd.Flags().StringVarP(&a.output, "output", "o", "", "Output file (default: <input>.<target>.po)")
	cmd.Flags().StringVarP(&a.service, "service", "s", "", "Translation service: google, libretranslate, mymemory")
	cmd.Flags().StringVar(&a.sourceLang, "source", "", "Source language code (default: detect from catalog)")
	cmd.Flags().StringVarP(&a.targetLang, "target", "t", "", "Target language code")
	cmd.Flags().IntVarP(&a.batchSize, "batch-size", "b", 0, "Entries per batch")
	cmd.Flags().IntVar(&a.saveInterval, "save-interval", 0, "Checkpoint every N translated entries")
	cmd.Flags().IntVarP(&a.workers, "workers", "w", 0, "Concurrent translation workers")
	cmd.Flags().DurationVar(&a.requestDelay, "request-delay", -1, "Minimum delay between service requests")
	cmd.Flags().BoolVar(&a.retranslate, "retranslate", false, "Re-translate already translated entries")
	cmd.Flags().BoolVar(&a.noCache, "no-cache", false, "Disable the translation cache")
	cmd.Flags().StringVar(&a.libreURL, "libretranslate-url", "", "LibreTranslate endpoint URL")
	cmd.Flags().StringVar(&a.email, "email", "", "Contact email for MyMemory (raises its daily quota)")
	cmd.Flags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	_ = cmd.RegisterFlagCompletionFunc("service", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"google\tGoogle Translate (no API key)",
			"libretranslate\tLibreTranslate (self-hostable)",
			"mymemory\tMyMemory (free tier)",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTranslate(cmd *cobra.Command, inputPath string, a translateArgs) error {
	logger.Init(a.verbose)

	cfg, err := config.Load(filepath.Dir(inputPath))
	if err != nil {
		return err
	}
	applyFlags(cmd, &a, &cfg)

	cat, err := pofile.Load(inputPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputPath, err)
	}

	sourceLang := langmeta.Normalize(cfg.SourceLang)
	if sourceLang == "" || sourceLang == langmeta.Auto {
		sourceLang = langmeta.Detect(cat)
		if sourceLang != langmeta.Auto {
			logger.Infof("Detected source language: %s (%s)", sourceLang, langmeta.Name(sourceLang))
		}
	}
	targetLang := langmeta.Normalize(cfg.TargetLang)
	if targetLang == "" {
		return fmt.Errorf("no target language: use --target or set target_lang in %s", config.FileName)
	}
	if sourceLang == targetLang {
		return fmt.Errorf("source and target language are both %q", targetLang)
	}

	outputPath := a.output
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath, targetLang)
	}

	// A previous run's output holds the translations done so far.
	// Loading it instead of the pristine input is what makes an
	// interrupted run resumable with the same command.
	if outputPath != inputPath && !a.retranslate {
		if resumed, err := pofile.Load(outputPath); err == nil && len(resumed.Entries) == len(cat.Entries) {
			logger.Infof("Resuming from %s", outputPath)
			cat = resumed
		}
	}

	lock, err := lockfile.Acquire(outputPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	store := cache.Open(cache.Options{
		Path:       cache.DerivePath(inputPath, targetLang),
		FlushEvery: cfg.CacheFlushEvery,
		Disabled:   cfg.NoCache,
	})

	svc, err := backend.New(backend.Config{
		Service:           cfg.Service,
		Timeout:           cfg.RequestTimeout(),
		LibreTranslateURL: cfg.LibreTranslateURL,
		MyMemoryEmail:     cfg.MyMemoryEmail,
	})
	if err != nil {
		return err
	}

	total, translated, _, untranslated := cat.Stats()
	logger.Infof("Catalog: %s (%d entries, %d translated, %d untranslated)",
		inputPath, total, translated, untranslated)
	logger.Infof("Service: %s, %s -> %s, %d workers", svc.Name(),
		sourceLang, langmeta.Name(targetLang), cfg.Workers)

	coord := pipeline.NewCoordinator()
	watchSignals(coord)

	pool := pipeline.NewPool(pipeline.PoolConfig{
		Workers:        cfg.Workers,
		Backend:        svc,
		Cache:          store,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		RequestDelay:   cfg.RequestDelay(),
		RequestTimeout: cfg.RequestTimeout(),
	}, coord)

	driver := pipeline.NewDriver(cat, pool, store,
		checkpoint.NewManager(outputPath), pipeline.Options{
			BatchSize:    cfg.BatchSize,
			SaveInterval: cfg.SaveInterval,
			Retranslate:  a.retranslate,
			TargetLang:   targetLang,
			OnProgress: func(done, total int) {
				logger.Infof(i18n.T("Translating %d of %d entries"), done, total)
			},
		})

	summary, err := driver.Run(coord)
	if err != nil {
		logger.Warn(i18n.T("Run the same command again to resume from the last checkpoint."))
		return err
	}

	logger.Infof("Translated %d entries (%d from cache, %d degraded)",
		summary.Translated, summary.FromCache, summary.Degraded)

	if shouldSuggestResume(summary) {
		logger.Info(i18n.T("Run the same command again to resume from the last checkpoint."))
	} else {
		logger.Info(i18n.T("Translation complete"))
	}
	logger.Infof("Output: %s", outputPath)
	return nil
}

// shouldSuggestResume reports whether the run left work behind that a
// re-run would pick up from the last checkpoint.
func shouldSuggestResume(sum pipeline.Summary) bool {
	return sum.Cancelled || sum.Degraded > 0 || sum.Abandoned > 0
}

// watchSignals requests cooperative cancellation on the first
// interrupt. Further interrupts are ignored so the final checkpoint
// always runs to completion.
func watchSignals(coord *pipeline.Coordinator) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn(i18n.T("Interrupt received, finishing current batch..."))
		logger.Warn(i18n.T("Saving final results, please wait..."))
		coord.Request()
		// Stay subscribed: restoring the default disposition here
		// would let a second interrupt kill the process mid final
		// save. Repeats are swallowed until the run exits.
		for range sigCh {
		}
	}()
}

// applyFlags layers explicitly set command-line flags over the file
// config, which itself overlays built-in defaults.
func applyFlags(cmd *cobra.Command, a *translateArgs, cfg *config.Config) {
	if a.service != "" {
		cfg.Service = a.service
	}
	if a.sourceLang != "" {
		cfg.SourceLang = a.sourceLang
	}
	if a.targetLang != "" {
		cfg.TargetLang = a.targetLang
	}
	if a.batchSize > 0 {
		cfg.BatchSize = a.batchSize
	}
	if a.saveInterval > 0 {
		cfg.SaveInterval = a.saveInterval
	}
	if a.workers > 0 {
		cfg.Workers = a.workers
	}
	if cmd.Flags().Changed("request-delay") && a.requestDelay >= 0 {
		cfg.RequestDelayMs = int(a.requestDelay.Milliseconds())
	}
	if a.noCache {
		cfg.NoCache = true
	}
	if a.libreURL != "" {
		cfg.LibreTranslateURL = a.libreURL
	}
	if a.email != "" {
		cfg.MyMemoryEmail = a.email
	}
}

// defaultOutputPath derives <base>.<target><ext> next to the input,
// e.g. messages.po -> messages.fa.po.
func defaultOutputPath(inputPath, targetLang string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(inputPath, ext)
	return base + "." + targetLang + ext
}
