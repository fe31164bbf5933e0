package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/google/uuid"

	"github.com/ajitpratap0/weft/pkg/analytics"
	"github.com/ajitpratap0/weft/pkg/auth"
	"github.com/ajitpratap0/weft/pkg/clients"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/logger"
	"github.com/ajitpratap0/weft/pkg/observability"
	"github.com/ajitpratap0/weft/pkg/platform"
	"github.com/ajitpratap0/weft/pkg/platform/compat"
	"github.com/ajitpratap0/weft/pkg/store"

	// Import all auth providers to register them
	_ "github.com/ajitpratap0/weft/pkg/auth/composio"
	_ "github.com/ajitpratap0/weft/pkg/auth/pipedream"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	var configFile string

	root := &cobra.Command{
		Use:   "weft",
		Short: "Weft - Source connector auth and compatibility platform",
		Long: `Weft manages source connectors whose credentials are brokered by external
auth providers. It answers which providers can authenticate which sources and
fetches credentials from the provider's connected accounts.`,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file (optional)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Weft v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(sourcesCommand())
	root.AddCommand(providersCommand())
	root.AddCommand(compatCommand())
	root.AddCommand(credsCommand(&configFile))
	root.AddCommand(connectionsCommand(&configFile))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration from defaults and an optional file.
func loadConfig(configFile string) (*config.Config, error) {
	cfg := config.New()
	if configFile != "" {
		if err := config.Load(configFile, cfg); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupTracing installs the tracer provider when tracing is enabled. The
// returned shutdown func flushes pending spans; it is always safe to call.
func setupTracing(cfg *config.Config) (func(), error) {
	if !cfg.Observability.EnableTracing {
		return func() {}, nil
	}
	if err := observability.Initialize(observability.TracingConfig{
		ServiceName:    "weft",
		ServiceVersion: version,
		SamplingRate:   cfg.Observability.TracingSampleRate,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return func() { _ = observability.Shutdown(context.Background()) }, nil
}

func sourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect the source connector catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available source connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Source Connectors:")
			for _, source := range platform.AllSources {
				info, _ := platform.Lookup(string(source))
				fmt.Printf("  - %-18s %s\n", source, info.Name)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "info <source>",
		Short: "Show catalog details for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, ok := platform.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown source '%s'", args[0])
			}
			fmt.Printf("Name:        %s\n", info.Name)
			fmt.Printf("Short name:  %s\n", info.ShortName)
			fmt.Printf("Category:    %s\n", info.Category)
			fmt.Printf("Auth fields: %s\n", strings.Join(info.AuthFields, ", "))
			fmt.Printf("Providers:   %s\n", joinProviders(compat.CompatibleProvidersFor(args[0])))
			return nil
		},
	})

	return cmd
}

func providersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect auth provider integrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered auth providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Registered Auth Providers:")
			for _, name := range auth.List() {
				info, _ := platform.LookupProvider(string(name))
				fmt.Printf("  - %-12s %s (%d sources)\n",
					name, info.Name, len(compat.SupportedSources(name)))
			}
		},
	})

	return cmd
}

func compatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compat",
		Short: "Query source/provider compatibility",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <source> <provider>",
		Short: "Check whether a provider supports a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, providerName := args[0], args[1]
			provider, err := platform.ParseProvider(providerName)
			if err != nil {
				return err
			}
			if !compat.IsCompatible(source, provider) {
				fmt.Printf("%s is NOT supported by %s\n", source, provider)
				if providers := compat.CompatibleProvidersFor(source); len(providers) > 0 {
					fmt.Printf("Compatible providers: %s\n", joinProviders(providers))
				}
				os.Exit(1)
			}
			fmt.Printf("%s is supported by %s\n", source, provider)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "providers <source>",
		Short: "List providers that can authenticate a source",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			providers := compat.CompatibleProvidersFor(args[0])
			if len(providers) == 0 {
				fmt.Printf("No auth providers support '%s'\n", args[0])
				return
			}
			for _, provider := range providers {
				fmt.Printf("  - %s\n", provider)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "matrix",
		Short: "Print the full compatibility matrix",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%-18s", "source")
			for _, provider := range platform.AllProviders {
				fmt.Printf(" %-10s", provider)
			}
			fmt.Println()
			for _, source := range platform.AllSources {
				fmt.Printf("%-18s", source)
				for _, provider := range platform.AllProviders {
					mark := "-"
					if compat.IsCompatible(string(source), provider) {
						mark = "x"
					}
					fmt.Printf(" %-10s", mark)
				}
				fmt.Println()
			}
		},
	})

	return cmd
}

func credsCommand(configFile *string) *cobra.Command {
	var fields []string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Fetch credentials from auth providers",
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch <provider> <source>",
		Short: "Fetch source credentials from a provider's connected account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fetchCredentials(*configFile, args[0], args[1], fields, timeout)
		},
	}
	fetchCmd.Flags().StringSliceVar(&fields, "field", nil, "Credential fields to fetch (default: the source's catalog auth fields)")
	fetchCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Fetch timeout")
	cmd.AddCommand(fetchCmd)

	return cmd
}

func fetchCredentials(configFile, providerName, source string, fields []string, timeout time.Duration) error {
	provider, err := platform.ParseProvider(providerName)
	if err != nil {
		return err
	}

	info, ok := platform.Lookup(source)
	if !ok {
		return fmt.Errorf("unknown source '%s'", source)
	}

	if !compat.IsCompatible(source, provider) {
		return fmt.Errorf("auth provider %s does not support source %s (compatible: %s)",
			provider, source, joinProviders(compat.CompatibleProvidersFor(source)))
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	shutdownTracing, err := setupTracing(cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	if len(fields) == 0 {
		fields = info.AuthFields
	}

	log := logger.Get().With(
		zap.String("component", "weft-cli"),
		zap.String("auth_provider", string(provider)),
		zap.String("source", source),
	)

	httpClient := clients.NewHTTPClient(cfg.HTTP, log)
	defer func() { _ = httpClient.Close() }()

	broker, err := auth.Create(provider, cfg, httpClient)
	if err != nil {
		return fmt.Errorf("failed to create auth provider '%s': %w", provider, err)
	}
	defer func() { _ = broker.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log.Info("fetching credentials", zap.Strings("fields", fields))
	start := time.Now()

	creds, err := broker.GetCredentialsForSource(ctx, source, fields)
	if err != nil {
		return fmt.Errorf("credential fetch failed: %w", err)
	}

	log.Info("credentials fetched", zap.Duration("duration", time.Since(start)))

	fmt.Printf("Credentials for %s via %s:\n", source, provider)
	for _, field := range fields {
		fmt.Printf("  %-22s %s\n", field, mask(creds[field]))
	}
	return nil
}

func connectionsCommand(configFile *string) *cobra.Command {
	var orgID, userID, name string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Manage source connections",
	}
	cmd.PersistentFlags().StringVar(&orgID, "org", "", "Organization id (required)")
	cmd.PersistentFlags().StringVar(&userID, "user", "", "Acting user id (optional, for event attribution)")
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the source connection schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(*configFile, timeout, func(ctx context.Context, st *store.Store, _ analytics.RequestHeaders) error {
				return st.Migrate(ctx)
			})
		},
	})

	createCmd := &cobra.Command{
		Use:   "create <source> <provider>",
		Short: "Create a source connection bound to an auth provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}
			return withStore(*configFile, timeout, func(ctx context.Context, st *store.Store, headers analytics.RequestHeaders) error {
				headers.OrganizationID = org
				headers.UserID = userID
				conn, err := st.Create(ctx, headers, store.CreateParams{
					OrganizationID: org,
					Name:           name,
					Source:         args[0],
					AuthProvider:   platform.AuthProvider(args[1]),
				})
				if err != nil {
					return err
				}
				fmt.Printf("Created connection %s (%s via %s, status %s)\n",
					conn.ID, conn.Source, conn.AuthProvider, conn.Status)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "Connection name (required)")
	cmd.AddCommand(createCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a source connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid connection id: %w", err)
			}
			return withStore(*configFile, timeout, func(ctx context.Context, st *store.Store, _ analytics.RequestHeaders) error {
				conn, err := st.Get(ctx, id)
				if err != nil {
					return err
				}
				printConnection(conn)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List an organization's source connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}
			return withStore(*configFile, timeout, func(ctx context.Context, st *store.Store, _ analytics.RequestHeaders) error {
				conns, err := st.List(ctx, org)
				if err != nil {
					return err
				}
				if len(conns) == 0 {
					fmt.Println("No source connections")
					return nil
				}
				for _, conn := range conns {
					fmt.Printf("%s  %-18s %-10s %-12s %s\n",
						conn.ID, conn.Source, conn.AuthProvider, conn.Status, conn.Name)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a source connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid connection id: %w", err)
			}
			return withStore(*configFile, timeout, func(ctx context.Context, st *store.Store, _ analytics.RequestHeaders) error {
				if err := st.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Printf("Deleted connection %s\n", id)
				return nil
			})
		},
	})

	return cmd
}

// withStore wires the configured store, analytics pipeline, and tracing
// around a single CLI operation.
func withStore(configFile string, timeout time.Duration, fn func(context.Context, *store.Store, analytics.RequestHeaders) error) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required for connection commands")
	}

	shutdownTracing, err := setupTracing(cfg)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	log := logger.Get().With(zap.String("component", "weft-cli"))
	httpClient := clients.NewHTTPClient(cfg.HTTP, log)
	defer func() { _ = httpClient.Close() }()

	service := analytics.NewService(cfg.Analytics, httpClient)
	defer service.Close()
	events := analytics.NewBusinessEventTracker(analytics.NewContextualService(service))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	st, err := store.New(ctx, cfg.Database, events)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(ctx, st, analytics.RequestHeaders{})
}

func printConnection(conn *store.SourceConnection) {
	fmt.Printf("ID:            %s\n", conn.ID)
	fmt.Printf("Organization:  %s\n", conn.OrganizationID)
	fmt.Printf("Name:          %s\n", conn.Name)
	fmt.Printf("Source:        %s\n", conn.Source)
	fmt.Printf("Auth provider: %s\n", conn.AuthProvider)
	fmt.Printf("Status:        %s\n", conn.Status)
	fmt.Printf("Created:       %s\n", conn.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Updated:       %s\n", conn.UpdatedAt.Format(time.RFC3339))
}

// mask keeps the first four characters of a secret for identification.
func mask(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}

func joinProviders(providers []platform.AuthProvider) string {
	names := make([]string, len(providers))
	for i, provider := range providers {
		names[i] = string(provider)
	}
	return strings.Join(names, ", ")
}
