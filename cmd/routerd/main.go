package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/zen-systems/routerd/pkg/adapter"
	"github.com/zen-systems/routerd/pkg/catalog"
	"github.com/zen-systems/routerd/pkg/classifier"
	"github.com/zen-systems/routerd/pkg/config"
	"github.com/zen-systems/routerd/pkg/logging"
	"github.com/zen-systems/routerd/pkg/registry"
	"github.com/zen-systems/routerd/pkg/router"
	"github.com/zen-systems/routerd/pkg/server"
	"go.uber.org/zap"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "routerd",
		Short: "Zero-shot routers for tools, models and guardrail actions",
		Long: `routerd manages routers that rank a fixed set of candidates (tools,
	models or guardrail actions) for a query using a zero-shot classifier,
	and serves them over an admin HTTP API.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (default ~/.routerd/config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(routersCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(catalogsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is everything a command needs, wired from configuration.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	adapters map[string]adapter.Adapter
	catalogs *catalog.Catalogs
	aliases  *config.ModelAliases
	cache    *classifier.Cache
	registry *registry.Registry
}

func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = a.logger.Sync()
}

func newApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	adapters, err := createAdapters(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create adapters: %w", err)
	}

	catalogs, err := catalog.LoadOrDefault(cfg.CatalogsFile, adapters)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogs: %w", err)
	}

	aliases, err := config.LoadAliasesOrDefault(cfg.ModelsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load model aliases: %w", err)
	}

	var cache *classifier.Cache
	if cfg.Classifier.CacheTTL > 0 {
		cache, err = classifier.NewCache(cfg.Classifier.CacheTTL, cfg.Classifier.CacheSizeMB, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create classifier cache: %w", err)
		}
	}

	factory := classifier.NewFactory(classifier.FactoryOptions{
		HuggingFaceURL:   cfg.Classifier.HuggingFaceURL,
		HuggingFaceToken: cfg.HuggingFaceToken,
		Adapters:         adapters,
		Cache:            cache,
		Warmup:           cfg.Classifier.Warmup,
		Logger:           logger,
	})

	seed, err := registry.LoadSeedOrDefault(cfg.RoutersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load routers: %w", err)
	}

	reg, err := registry.New(factory, catalogs, seed,
		registry.WithLogger(logger),
		registry.WithResolver(aliases),
		registry.WithRouteTimeout(cfg.Classifier.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		adapters: adapters,
		catalogs: catalogs,
		aliases:  aliases,
		cache:    cache,
		registry: reg,
	}, nil
}

func serveCmd() *cobra.Command {
	var (
		addrFlag string
		initFlag bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server",
		Long: `Serves the router admin API. Routers are initialized at startup
	unless --initialize=false; a failed startup initialization is logged and
	the server still starts so settings can be corrected over the API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if initFlag {
				if _, err := a.registry.InitializeAll(ctx); err != nil {
					a.logger.Error("startup initialization failed", zap.Error(err))
				}
			}

			addr := a.cfg.Server.Addr
			if addrFlag != "" {
				addr = addrFlag
			}

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(a.registry, server.Options{
				RateLimit: a.cfg.Server.RateLimit,
				Burst:     a.cfg.Server.Burst,
				Logger:    a.logger,
			})
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&initFlag, "initialize", true, "initialize routers at startup")

	return cmd
}

func routersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routers",
		Short: "List configured routers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tENABLED\tCLASSIFIER\tMODEL\tN\tTHRESHOLD")
			for _, r := range a.registry.List() {
				s := r.Settings
				model := s.Model
				if resolved := a.aliases.Resolve(model); resolved != model {
					model = fmt.Sprintf("%s (%s)", model, resolved)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\t%d\t%g\n",
					r.ID, r.Name, r.Kind, s.Enabled, s.Classifier, orDash(model), s.N, s.Threshold)
			}
			return w.Flush()
		},
	}
}

func routeCmd() *cobra.Command {
	var (
		routerFlag string
		jsonFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "route [query]",
		Short: "Initialize routers and route one query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			report, err := a.registry.InitializeAll(ctx)
			if err != nil {
				printFailures(report)
				return err
			}

			r, err := a.registry.Router(routerFlag)
			if err != nil {
				return err
			}
			decision, err := r.RouteWithDecision(ctx, args[0])
			if err != nil {
				return err
			}

			if jsonFlag {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(decision)
			}
			return printDecision(decision)
		},
	}

	cmd.Flags().StringVar(&routerFlag, "router", "", "router id")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the decision as JSON")
	_ = cmd.MarkFlagRequired("router")

	return cmd
}

func catalogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogs",
		Short: "Show the candidates each router kind classifies against",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tDESCRIPTION")
			for _, kind := range router.Kinds() {
				cat, err := a.catalogs.For(kind)
				if err != nil {
					return err
				}
				set, err := cat.Candidates(cmd.Context())
				if err != nil {
					return fmt.Errorf("%s catalog: %w", kind, err)
				}
				for _, c := range set.Items() {
					fmt.Fprintf(w, "%s\t%s\t%s\n", kind, c.Name, c.Description)
				}
			}

			aliasMap := a.aliases.ListAliases()
			if len(aliasMap) > 0 {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "ALIAS\tMODEL\t")
				names := make([]string, 0, len(aliasMap))
				for name := range aliasMap {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%s\t\n", name, aliasMap[name])
				}
			}
			return w.Flush()
		},
	}
}

func printDecision(d *router.Decision) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Router:\t%s (%s)\n", d.RouterID, d.Kind)
	fmt.Fprintf(w, "Classifier:\t%s\n", d.Classifier)
	fmt.Fprintf(w, "Selected:\t%s\n", orDash(d.Selected))
	fmt.Fprintf(w, "Latency:\t%dms\n", d.LatencyMs)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "RANK\tNAME\tSCORE")
	for i, m := range d.Matches {
		fmt.Fprintf(w, "%d\t%s\t%.4f\n", i+1, m.Name, m.Score)
	}
	if len(d.Reasons) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Reasons:\t%s\n", strings.Join(d.Reasons, "; "))
	}
	return w.Flush()
}

func printFailures(report *registry.InitReport) {
	if report == nil {
		return
	}
	ids := make([]string, 0, len(report.Results))
	for id := range report.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if res := report.Results[id]; res.Status == registry.StatusFailed {
			fmt.Fprintf(os.Stderr, "router %s: %s\n", id, res.Error)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func createAdapters(cfg *config.Config) (map[string]adapter.Adapter, error) {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic adapter: %w", err)
		}
		adapters["anthropic"] = a
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai adapter: %w", err)
		}
		adapters["openai"] = a
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google adapter: %w", err)
		}
		adapters["google"] = a
	}

	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAdapter(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek adapter: %w", err)
		}
		adapters["deepseek"] = a
	}

	return adapters, nil
}
