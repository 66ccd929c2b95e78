package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/efebarandurmaz/bestiary/internal/bestiary"
	"github.com/efebarandurmaz/bestiary/internal/collection"
	"github.com/efebarandurmaz/bestiary/internal/creature"
	"github.com/efebarandurmaz/bestiary/internal/dashboard"
	"github.com/efebarandurmaz/bestiary/internal/generator"
	"github.com/efebarandurmaz/bestiary/internal/llm"
	"github.com/efebarandurmaz/bestiary/internal/llmutil"
	"github.com/efebarandurmaz/bestiary/internal/observability"
	"github.com/efebarandurmaz/bestiary/internal/pricing"
	"github.com/efebarandurmaz/bestiary/internal/server"
	"github.com/efebarandurmaz/bestiary/internal/tui"
)

var version = "0.1.0"

// parseErrorPrefix introduces a reply that could not be interpreted.
const parseErrorPrefix = "La réponse n'est pas un JSON valide. "

func main() {
	var (
		configPath string
		envPath    string
	)

	rootCmd := &cobra.Command{
		Use:           "bestiary",
		Short:         "Creature generator for the Cendrebourg world",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/bestiary.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "Dotenv file loaded before the config")

	var (
		flags     settingsFlags
		count     int
		outDir    string
		jsonOut   bool
		rawOut    bool
		reportFmt string
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one or more creatures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), configPath, envPath, flags, generateOptions{
				count:     count,
				outDir:    outDir,
				jsonOut:   jsonOut,
				rawOut:    rawOut,
				reportFmt: reportFmt,
			})
		},
	}
	flags.register(generateCmd)
	generateCmd.Flags().IntVarP(&count, "count", "n", 1, "Number of creatures to generate")
	generateCmd.Flags().StringVarP(&outDir, "out", "o", "", "Write creature files and the collection file to this directory")
	generateCmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON (default when stdout is not a terminal)")
	generateCmd.Flags().BoolVar(&rawOut, "raw", false, "Also print the raw reply text")
	generateCmd.Flags().StringVar(&reportFmt, "report", "text", "Session report format: text, json or none")

	interpretCmd := &cobra.Command{
		Use:   "interpret [file|-]",
		Short: "Interpret a saved raw reply into a creature document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runInterpret(path, os.Stdout, os.Stderr)
		},
	}

	costCmd := &cobra.Command{
		Use:   "cost <model> <input-tokens> <output-tokens>",
		Short: "Estimate the cost of a call",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(configPath, envPath)
			if err != nil {
				return err
			}
			return runCost(a.prices, args, jsonOut, os.Stdout)
		},
	}
	costCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the usage record as JSON")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List models and their prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(configPath, envPath)
			if err != nil {
				return err
			}
			printModels(os.Stdout, a.prices)
			return nil
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			printProviders(os.Stdout)
		},
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show habitats, types, roles and elements",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(configPath, envPath)
			if err != nil {
				return err
			}
			return printCatalog(os.Stdout, a.cfg.Generation, jsonOut)
		},
	}
	catalogCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the catalog as JSON")

	var listenAddr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, envPath, listenAddr)
		},
	}
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides server.listen_addr)")

	var tuiFlags settingsFlags
	var exportDir string
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), configPath, envPath, tuiFlags, exportDir)
		},
	}
	tuiFlags.register(tuiCmd)
	tuiCmd.Flags().StringVar(&exportDir, "export-dir", ".", "Directory for exported files")

	rootCmd.AddCommand(generateCmd, interpretCmd, costCmd, modelsCmd, providersCmd, catalogCmd, serveCmd, tuiCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// settingsFlags binds every generation setting to command flags. Unset
// flags fall back to the configured defaults.
type settingsFlags struct {
	bestiary.Settings
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.CreatureType, "type", "", "Creature type (see `bestiary catalog`)")
	cmd.Flags().StringVar(&f.Habitat, "habitat", "", "Habitat id")
	cmd.Flags().StringVar(&f.Role, "role", "", "Role id")
	cmd.Flags().StringVar(&f.Element, "element", "", "Element id")
	cmd.Flags().IntVar(&f.DangerLevel, "danger", 0, "Danger level 1-5")
	cmd.Flags().StringVar(&f.Model, "model", "", "Model id")
	cmd.Flags().Float64Var(&f.Temperature, "temperature", 0, "Sampling temperature 0.3-1.0")
}

func (f settingsFlags) resolve(defaults bestiary.Settings) bestiary.Settings {
	return f.Settings.WithDefaults(defaults)
}

type generateOptions struct {
	count     int
	outDir    string
	jsonOut   bool
	rawOut    bool
	reportFmt string
}

func runGenerate(ctx context.Context, configPath, envPath string, flags settingsFlags, opts generateOptions) error {
	a, err := setup(ctx, configPath, envPath)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	gen, err := a.generator()
	if err != nil {
		return err
	}

	settings := flags.resolve(a.cfg.Generation)
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if opts.count < 1 {
		opts.count = 1
	}
	asJSON := opts.jsonOut || !term.IsTerminal(int(os.Stdout.Fd()))
	coll := collection.New()
	styles := tui.DefaultStyles()
	width := terminalWidth()

	var genErr error
	for i := 0; i < opts.count; i++ {
		res, err := gen.GenerateFromSettings(ctx, settings)
		if err != nil {
			genErr = err
			break
		}

		switch {
		case asJSON:
			data, err := json.Marshal(res)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		case res.ParseError != nil:
			fmt.Fprintln(os.Stderr, styles.ErrorBanner.Render(parseErrorPrefix+res.ParseError.Error()))
			fmt.Println(styles.RawText.Render(res.RawText))
			fmt.Println(styles.Usage.Render(tui.FormatUsage(res.Usage)))
		default:
			fmt.Println(tui.RenderCard(res.Creature, styles, width))
			fmt.Println(styles.Usage.Render(tui.FormatUsage(res.Usage)))
		}
		if opts.rawOut && !asJSON {
			fmt.Fprintln(os.Stderr, res.RawText)
		}

		if res.OK() {
			if _, err := coll.Add(res.Creature); err != nil && !errors.Is(err, collection.ErrDuplicate) {
				return err
			}
		}
	}

	if opts.outDir != "" && coll.Len() > 0 {
		if err := writeExports(opts.outDir, coll, a.audit); err != nil {
			return err
		}
	}

	a.session.Finish(coll.Len())
	switch opts.reportFmt {
	case "json":
		data, err := a.session.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, string(data))
	case "none":
	default:
		a.session.PrintSummary(os.Stderr)
	}

	return genErr
}

func writeExports(dir string, coll *collection.Collection, audit *observability.AuditLogger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return f.Close()
	}

	for _, c := range coll.Creatures() {
		name := collection.CreatureFilename(c)
		if err := write(name, func(w io.Writer) error { return collection.WriteCreature(w, c) }); err != nil {
			return err
		}
		audit.LogExport(name, 1)
	}

	creatures := coll.Creatures()
	if err := write(collection.CollectionFilename, func(w io.Writer) error { return collection.WriteAll(w, creatures) }); err != nil {
		return err
	}
	audit.LogExport(collection.CollectionFilename, len(creatures))
	fmt.Fprintf(os.Stderr, "Wrote %d creature file(s) and %s to %s\n", len(creatures), collection.CollectionFilename, dir)
	return nil
}

func runInterpret(path string, stdout, stderr io.Writer) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	c, err := creature.Interpret(string(data))
	if err != nil {
		var pe *creature.ParseError
		if errors.As(err, &pe) {
			return errors.New(parseErrorPrefix + pe.Error())
		}
		return err
	}
	if c.PortraitRejected() {
		fmt.Fprintln(stderr, "Warning: svg_portrait was not an <svg> document and has been set to null")
	}
	return collection.WriteCreature(stdout, c)
}

func runCost(prices *pricing.Table, args []string, jsonOut bool, w io.Writer) error {
	in, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("input tokens: %w", err)
	}
	out, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("output tokens: %w", err)
	}

	u := pricing.NewUsage(prices, args[0], 0, in, out)
	if jsonOut {
		return json.NewEncoder(w).Encode(u)
	}

	model := args[0]
	if _, ok := prices.Lookup(model); !ok {
		model = fmt.Sprintf("%s (unknown, billed as %s)", args[0], prices.DefaultModel())
	}
	fmt.Fprintf(w, "%s: %d input + %d output tokens = $%.6f\n", model, u.InputTokens, u.OutputTokens, u.CostUSD)
	return nil
}

func printModels(w io.Writer, prices *pricing.Table) {
	labels := make(map[string]string, len(bestiary.Models))
	for _, m := range bestiary.Models {
		labels[m.ID] = m.Label
	}

	fmt.Fprintln(w, "Models (USD per million tokens):")
	fmt.Fprintln(w)
	for _, id := range prices.Models() {
		p, _ := prices.Lookup(id)
		marker := " "
		if id == prices.DefaultModel() {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %-32s %-18s in %6.2f  out %6.2f\n", marker, id, labels[id], p.InputPerMillion, p.OutputPerMillion)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "* default: unknown models are billed at this price")
}

func printProviders(w io.Writer) {
	fmt.Fprintln(w, "Available LLM providers:")
	fmt.Fprintln(w)
	names := make([]string, 0, len(llm.KnownProviders))
	for name := range llm.KnownProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, llm.KnownProviders[name])
	}
	fmt.Fprintln(w, "  proxy          (set base_url to a generate endpoint speaking the Messages format)")
	fmt.Fprintln(w, "  custom         (set base_url to any OpenAI-compatible endpoint)")
	fmt.Fprintln(w, "  none           (no endpoint: generation is refused)")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Registered: %v\n", llmutil.NewFactory().Names())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configure in bestiary.yaml, .env or via environment:")
	fmt.Fprintln(w, "  BESTIARY_LLM_PROVIDER=anthropic")
	fmt.Fprintln(w, "  BESTIARY_LLM_API_KEY=sk-ant-...")
	fmt.Fprintln(w, "  BESTIARY_LLM_MODEL=claude-sonnet-4-20250514")
}

func printCatalog(w io.Writer, defaults bestiary.Settings, jsonOut bool) error {
	cat := bestiary.FullCatalog(defaults)
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cat)
	}

	fmt.Fprintln(w, "Habitats:")
	for _, h := range cat.Habitats {
		fmt.Fprintf(w, "  %-14s %-28s danger %d\n", h.ID, h.Name, h.DangerBase)
	}
	fmt.Fprintln(w, "\nTypes:")
	for _, o := range cat.CreatureTypes {
		fmt.Fprintf(w, "  %-14s %s\n", o.ID, o.Label)
	}
	fmt.Fprintln(w, "\nRoles:")
	for _, o := range cat.Roles {
		fmt.Fprintf(w, "  %-14s %s\n", o.ID, o.Label)
	}
	fmt.Fprintln(w, "\nElements:")
	for _, e := range cat.Elements {
		fmt.Fprintf(w, "  %-14s %-14s %s\n", e.ID, e.Label, e.Color)
	}
	fmt.Fprintln(w, "\nDanger levels:")
	for i, label := range cat.DangerLabels {
		fmt.Fprintf(w, "  %d  %s\n", i+1, label)
	}
	fmt.Fprintf(w, "\nDefaults: %s / %s / %s / %s / danger %d / %s / t=%.1f\n",
		defaults.CreatureType, defaults.Habitat, defaults.Role, defaults.Element,
		defaults.DangerLevel, defaults.Model, defaults.Temperature)
	return nil
}

func runServe(ctx context.Context, configPath, envPath, listenAddr string) error {
	a, err := setup(ctx, configPath, envPath)
	if err != nil {
		return err
	}

	cfg := dashboard.DefaultConfig()
	cfg.ListenAddr = a.cfg.Server.ListenAddr
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	cfg.CORSOrigin = a.cfg.Server.CORSOrigin
	cfg.HistorySize = a.cfg.Server.HistorySize

	coll := collection.New()
	emitter := dashboard.NewEmitterFor(cfg)

	health := server.NewHealthServer(&server.HealthConfig{Version: version})
	providerName := ""
	if a.provider != nil {
		providerName = a.provider.Name()
	}
	health.RegisterCheck("llm", server.LLMHealthChecker(providerName, nil))
	health.RegisterCheck("config", server.ConfigHealthChecker(a.warnings))
	health.RegisterCheck("collection", server.CollectionHealthChecker(coll.Len))

	opts := dashboard.Options{
		Collection: coll,
		Defaults:   a.cfg.Generation,
		Health:     health,
		Metrics:    observability.Metrics(),
		Audit:      a.audit,
		Logger:     a.logger,
	}
	if gen, err := a.generator(generator.WithObserver(emitter.Observe)); err == nil {
		opts.Generator = gen
	} else {
		a.logger.Warn("serving without generation", "error", err)
	}

	dash := dashboard.New(cfg, emitter, opts)

	shutdown := server.NewShutdownHandler(a.cfg.Server.ShutdownTimeout, health, a.logger)
	shutdown.Register(server.HTTPServerShutdownHook("http", dash.Server.HTTPServer()))
	shutdown.Register(server.TracingShutdownHook(a.tracing.Shutdown))
	shutdown.Register(server.AuditLoggerShutdownHook(a.audit.Close))

	errCh := make(chan error, 1)
	go func() {
		errCh <- dash.Server.Start()
	}()
	health.SetReady(true)

	select {
	case err := <-errCh:
		shutdown.Shutdown()
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	if err := shutdown.Shutdown(); err != nil {
		return err
	}

	a.session.Finish(coll.Len())
	a.session.PrintSummary(os.Stderr)
	return <-errCh
}

func runTUI(ctx context.Context, configPath, envPath string, flags settingsFlags, exportDir string) error {
	a, err := setup(ctx, configPath, envPath)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	gen, err := a.generator()
	if err != nil {
		return err
	}

	settings := flags.resolve(a.cfg.Generation)
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	final, err := tui.Run(ctx, tui.Options{
		Generator: gen,
		Settings:  settings,
		ExportDir: exportDir,
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	collected := 0
	if c := final.Collection(); c != nil {
		collected = c.Len()
	}
	a.session.Finish(collected)
	a.session.PrintSummary(os.Stderr)
	return nil
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return min(w, 100)
}

