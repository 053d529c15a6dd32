package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vkick/wabridge/pkg/config"
	"github.com/vkick/wabridge/pkg/storage"
)

// migrateDataCommand copies contacts and cron jobs between the file
// backend and PostgreSQL. Direction follows storage.type: postgres in
// the config means file is the source, and the other way around.
func migrateDataCommand() {
	fmt.Println("🔄 WaBridge Data Migration Tool")
	fmt.Println("================================")
	fmt.Println()

	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	var sourceType, destType string
	var sourceConfig, destConfig storage.Config

	if cfg.Storage.Type == "postgres" {
		sourceType = "file"
		destType = "postgres"

		sourceConfig = storage.Config{
			Type:     "file",
			FilePath: cfg.WorkspacePath(),
		}

		destConfig = storage.Config{
			Type:        "postgres",
			DatabaseURL: cfg.Storage.DatabaseURL,
		}
	} else {
		sourceType = "postgres"
		destType = "file"

		sourceConfig = storage.Config{
			Type:        "postgres",
			DatabaseURL: cfg.Storage.DatabaseURL,
		}

		destConfig = storage.Config{
			Type:     "file",
			FilePath: cfg.WorkspacePath(),
		}
	}

	fmt.Printf("📁 Source: %s\n", sourceType)
	fmt.Printf("📁 Destination: %s\n", destType)
	fmt.Println()

	fmt.Print("⚠️  This will migrate all data. Continue? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" {
		fmt.Println("❌ Migration cancelled")
		return
	}

	fmt.Printf("🔌 Connecting to source (%s)...\n", sourceType)
	sourceStore, err := storage.NewStorage(sourceConfig)
	if err != nil {
		fmt.Printf("❌ Error creating source storage: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := sourceStore.Connect(ctx); err != nil {
		fmt.Printf("❌ Error connecting to source: %v\n", err)
		os.Exit(1)
	}
	defer sourceStore.Close()

	fmt.Printf("🔌 Connecting to destination (%s)...\n", destType)
	destStore, err := storage.NewStorage(destConfig)
	if err != nil {
		fmt.Printf("❌ Error creating destination storage: %v\n", err)
		os.Exit(1)
	}

	if err := destStore.Connect(ctx); err != nil {
		fmt.Printf("❌ Error connecting to destination: %v\n", err)
		os.Exit(1)
	}
	defer destStore.Close()

	fmt.Println()
	fmt.Println("📦 Migrating contacts...")
	if err := migrateContacts(ctx, sourceStore, destStore); err != nil {
		fmt.Printf("❌ Error migrating contacts: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("📦 Migrating cron jobs...")
	if err := migrateCronJobs(ctx, sourceStore, destStore); err != nil {
		fmt.Printf("❌ Error migrating cron jobs: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("✅ Migration completed successfully!")
	fmt.Println()
	fmt.Println("⚠️  Remember to:")
	fmt.Printf("   1. Update storage.type to '%s' in the config\n", destType)
	fmt.Println("   2. Restart WaBridge for changes to take effect")
}

func migrateContacts(ctx context.Context, source, dest storage.Storage) error {
	entries, err := source.Contacts().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	fmt.Printf("   Found %d contacts\n", len(entries))

	for i, contact := range entries {
		fmt.Printf("   [%d/%d] Migrating contact: %s\n", i+1, len(entries), contact.JID)

		if err := dest.Contacts().Set(ctx, contact); err != nil {
			return fmt.Errorf("failed to save contact %s: %w", contact.JID, err)
		}
	}

	fmt.Printf("   ✅ Migrated %d contacts\n", len(entries))
	return nil
}

func migrateCronJobs(ctx context.Context, source, dest storage.Storage) error {
	jobs, err := source.Cron().ListJobs(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list cron jobs: %w", err)
	}

	fmt.Printf("   Found %d cron jobs\n", len(jobs))

	for i, job := range jobs {
		fmt.Printf("   [%d/%d] Migrating cron job: %s\n", i+1, len(jobs), job.Name)

		if err := dest.Cron().AddJob(ctx, &job); err != nil {
			return fmt.Errorf("failed to save cron job %s: %w", job.Name, err)
		}
	}

	fmt.Printf("   ✅ Migrated %d cron jobs\n", len(jobs))
	return nil
}

// exportDataCommand exports data from current storage to JSON files
func exportDataCommand(outputDir string) {
	fmt.Println("📤 WaBridge Data Export Tool")
	fmt.Println("============================")
	fmt.Println()

	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	storeCfg := storage.Config{
		Type:        cfg.Storage.Type,
		DatabaseURL: cfg.Storage.DatabaseURL,
		FilePath:    cfg.WorkspacePath(),
	}

	fmt.Printf("📁 Storage type: %s\n", cfg.Storage.Type)
	fmt.Printf("📁 Output directory: %s\n", outputDir)
	fmt.Println()

	store, err := storage.NewStorage(storeCfg)
	if err != nil {
		fmt.Printf("❌ Error creating storage: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := store.Connect(ctx); err != nil {
		fmt.Printf("❌ Error connecting to storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Printf("❌ Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("📦 Exporting contacts...")
	if err := exportContacts(ctx, store, outputDir); err != nil {
		fmt.Printf("❌ Error exporting contacts: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("📦 Exporting cron jobs...")
	if err := exportCronJobs(ctx, store, outputDir); err != nil {
		fmt.Printf("❌ Error exporting cron jobs: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("✅ Export completed successfully to: %s\n", outputDir)
}

func exportContacts(ctx context.Context, store storage.Storage, outputDir string) error {
	entries, err := store.Contacts().List(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("   Exporting %d contacts...\n", len(entries))

	filename := fmt.Sprintf("%s/contacts.json", outputDir)
	if err := writeJSON(filename, entries); err != nil {
		return err
	}

	fmt.Printf("   ✅ Exported %d contacts\n", len(entries))
	return nil
}

func exportCronJobs(ctx context.Context, store storage.Storage, outputDir string) error {
	jobs, err := store.Cron().ListJobs(ctx, true)
	if err != nil {
		return err
	}

	fmt.Printf("   Exporting %d cron jobs...\n", len(jobs))

	filename := fmt.Sprintf("%s/cron_jobs.json", outputDir)
	if err := writeJSON(filename, jobs); err != nil {
		return err
	}

	fmt.Printf("   ✅ Exported %d cron jobs\n", len(jobs))
	return nil
}

// migrateConfigCommand moves a plaintext config.json into the
// encrypted store. LoadConfig does this on its own when it finds a
// legacy file; this command is the explicit, confirmed variant for
// operators migrating into a non-default store target.
func migrateConfigCommand() {
	fmt.Println("🔐 WaBridge Config Migration Tool")
	fmt.Println("=================================")
	fmt.Println()

	legacyPath := config.LegacyConfigPath()
	if _, err := os.Stat(legacyPath); err != nil {
		fmt.Printf("❌ No plaintext config found at %s\n", legacyPath)
		os.Exit(1)
	}

	configPath := getConfigPath()
	target := configPath
	if target == "" {
		target = config.DefaultConfigDBPath()
	}
	if url := os.Getenv("WABRIDGE_CONFIG_DATABASE_URL"); url != "" {
		target = "postgres (WABRIDGE_CONFIG_DATABASE_URL)"
	}

	fmt.Printf("📁 Plaintext config: %s\n", legacyPath)
	fmt.Printf("📁 Encrypted store: %s\n", target)
	fmt.Println()

	fmt.Print("⚠️  Existing store contents will be overwritten. Continue? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" {
		fmt.Println("❌ Migration cancelled")
		return
	}

	cfg, err := config.LoadConfigFromFile(legacyPath)
	if err != nil {
		fmt.Printf("❌ Error reading plaintext config: %v\n", err)
		os.Exit(1)
	}

	if err := config.SaveConfig(configPath, cfg); err != nil {
		fmt.Printf("❌ Error writing encrypted store: %v\n", err)
		os.Exit(1)
	}

	backupPath := legacyPath + ".bak"
	if err := os.Rename(legacyPath, backupPath); err != nil {
		fmt.Printf("⚠️  Config migrated, but the plaintext file could not be renamed: %v\n", err)
		fmt.Printf("   Remove %s by hand.\n", legacyPath)
		return
	}

	fmt.Println()
	fmt.Println("✅ Config migrated into the encrypted store")
	fmt.Printf("   Plaintext file kept as %s\n", backupPath)
}

// Helper functions
func writeJSON(filename string, data interface{}) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
