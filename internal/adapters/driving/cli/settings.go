package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/mmrag/internal/core/domain"
	"github.com/custodia-labs/mmrag/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the vector index and ingestion options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the provider that embeds text and images into one vector space.

Changing the embedding model changes the vector dimension; re-ingest your
documents into a fresh index afterwards.`,
	RunE: runSettingsEmbedding,
}

var settingsGenerationCmd = &cobra.Command{
	Use:   "generation",
	Short: "Configure generation provider",
	Long:  `Configure the multimodal model that answers questions from retrieved context.`,
	RunE:  runSettingsGeneration,
}

var settingsBackendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Select the vector index backend",
	Long: `Select where vectors are stored.

Available backends:
  memory  - In process memory, lost on exit
  sqlite  - Local SQLite file in the data directory
  qdrant  - Qdrant collection over gRPC (requires index.addr)`,
	RunE: runSettingsBackend,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  mmrag settings set ingest.batch_size 100
  mmrag settings set ingest.include "**/*.pdf,**/*.png"

Run 'mmrag settings keys' to list every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:         "keys",
	Short:       "List setting keys",
	Annotations: map[string]string{annotationNoServices: "true"},
	Run: func(cmd *cobra.Command, _ []string) {
		for _, key := range services.SettingKeys() {
			cmd.Println(key)
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{
		settingsCmd, settingsShowCmd, settingsWizardCmd, settingsEmbeddingCmd,
		settingsGenerationCmd, settingsBackendCmd, settingsSetCmd,
	} {
		c.Annotations = map[string]string{annotationSettingsOnly: "true"}
	}
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsGenerationCmd)
	settingsCmd.AddCommand(settingsBackendCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.VisionModel != "" {
		cmd.Printf("  Vision model: %s\n", settings.Embedding.VisionModel)
	}
	printProviderAccess(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.ResolvedDimensions())
	cmd.Printf("  Status: %s\n", configuredLabel(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[Generation]")
	cmd.Printf("  Provider: %s\n", settings.Generation.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Generation.Model)
	printProviderAccess(cmd, settings.Generation.Provider, settings.Generation.BaseURL, settings.Generation.APIKey)
	cmd.Printf("  Temperature: %.2f\n", settings.Generation.Temperature)
	cmd.Printf("  Max tokens: %d\n", settings.Generation.MaxTokens)
	cmd.Printf("  Status: %s\n", configuredLabel(settings.Generation.IsConfigured()))
	cmd.Println()

	cmd.Println("[Vector Index]")
	cmd.Printf("  Backend: %s\n", settings.Index.Backend.Description())
	cmd.Printf("  Collection: %s\n", settings.Index.Collection)
	if settings.Index.Path != "" {
		cmd.Printf("  Path: %s\n", settings.Index.Path)
	}
	if settings.Index.Backend == domain.IndexBackendQdrant {
		cmd.Printf("  Address: %s\n", valueOrUnset(settings.Index.Addr))
	}
	cmd.Printf("  Max batch size: %d\n", settings.Index.MaxBatchSize)
	cmd.Println()

	cmd.Println("[Ingestion]")
	cmd.Printf("  Batch size: %d\n", settings.Ingest.BatchSize)
	cmd.Printf("  Concurrency: %d\n", settings.Ingest.MaxConcurrency)
	cmd.Printf("  Upsert attempts: %d (backoff %s)\n", settings.Ingest.UpsertAttempts, settings.Ingest.UpsertBackoff)
	cmd.Printf("  Queue depth: %d\n", settings.Ingest.QueueDepth)
	cmd.Printf("  Chunk size: %d (overlap %d)\n", settings.Ingest.ChunkSize, settings.Ingest.ChunkOverlap)
	cmd.Printf("  Include: %s\n", strings.Join(settings.Ingest.Include, ", "))
	cmd.Printf("  OCR: %s\n", yesNo(settings.Ingest.OCR))
	cmd.Println()

	cmd.Println("[Paths]")
	cmd.Printf("  Raw data: %s\n", settings.Paths.RawData)
	cmd.Printf("  Processed: %s\n", settings.Paths.Processed)
	cmd.Printf("  Server address: %s\n", settings.Server.Addr)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'mmrag settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("mmrag Settings Wizard")
	cmd.Println("=====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: Configure Generation Provider")
	cmd.Println("-------------------------------------")
	if err := configureGenerationProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 3: Select Vector Index")
	cmd.Println("---------------------------")
	if err := configureBackend(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsGeneration(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureGenerationProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsBackend(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureBackend(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

// providerSetter stores a provider choice.
type providerSetter func(provider domain.AIProvider, model, apiKey string) error

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureProvider(cmd, reader, providerPrompt{
		label:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		set:       settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	})
}

func configureGenerationProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureProvider(cmd, reader, providerPrompt{
		label:     "Generation",
		providers: domain.AllGenerationProviders(),
		defaults:  domain.DefaultGenerationModels(),
		set:       settingsService.SetGenerationProvider,
		validate:  settingsService.ValidateGenerationConfig,
	})
}

type providerPrompt struct {
	label     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	set       providerSetter
	validate  func() error
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, p providerPrompt) error {
	cmd.Printf("Select %s Provider\n", p.label)
	for i, provider := range p.providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(p.providers), 1)
	selected := p.providers[idx-1]

	defaultModel := p.defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := p.set(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(p.label), err)
	}

	cmd.Print("Validating configuration... ")
	if err := p.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(p.label), err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n\n", p.label, selected.Description(), model)
	return nil
}

func configureBackend(cmd *cobra.Command, reader *bufio.Reader) error {
	backends := domain.AllIndexBackends()
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Print("\nEnter choice [2]: ")
	idx := parseChoice(readLine(reader), len(backends), 2)
	selected := backends[idx-1]

	if err := settingsService.SetIndexBackend(selected); err != nil {
		return fmt.Errorf("failed to set index backend: %w", err)
	}

	if selected == domain.IndexBackendQdrant {
		cmd.Print("Enter Qdrant gRPC address [localhost:6334]: ")
		addr := readLine(reader)
		if addr == "" {
			addr = "localhost:6334"
		}
		if err := settingsService.Set("index.addr", addr); err != nil {
			return fmt.Errorf("failed to set index address: %w", err)
		}
	}

	cmd.Printf("Index backend set to: %s\n\n", selected.Description())
	return nil
}

// Helper functions.

func printProviderAccess(cmd *cobra.Command, provider domain.AIProvider, baseURL, apiKey string) {
	if provider.IsLocal() || baseURL != "" {
		cmd.Printf("  Base URL: %s\n", valueOrUnset(baseURL))
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func valueOrUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo on a terminal and falls back to reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
