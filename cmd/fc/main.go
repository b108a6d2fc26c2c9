package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"fc-go/internal/app"
	"fc-go/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an FCApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "RefAdd", "Maintain").
func newApp(operation string) (*app.FCApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewFCApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts for a passphrase without echoing it.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pw), nil
}

// parseID converts a positional argument into a numeric record id.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

var rootCmd = &cobra.Command{
	Use:   "fc",
	Short: "File comparison catalog tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new install ID
		installID := uuid.New().String()

		// Create config with defaults
		cfg := config.NewConfig(installID, defaults["base_dir"])

		// Initialize config file
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Install ID: %s\n", installID)
		fmt.Printf("Base Dir:   %s\n", defaults["base_dir"])

		if encrypt {
			passphrase, err := readPassphrase("Passphrase for backup encryption key: ")
			if err != nil {
				return err
			}

			a, err := app.NewFCApp(cfg, "ConfigInit")
			if err != nil {
				return fmt.Errorf("initializing app: %w", err)
			}
			defer a.Close()

			if err := a.SetupEncryption(passphrase); err != nil {
				return fmt.Errorf("setting up encryption: %w", err)
			}
			fmt.Println("Encryption key pair generated.")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Read config
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		// Display config
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Install ID: %s\n", cfg.InstallID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		return nil
	},
}

// ref command
var refCmd = &cobra.Command{
	Use:   "ref",
	Short: "Manage reference files",
}

var refAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Add a reference file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetString("tags")

		a, err := newApp("RefAdd")
		if err != nil {
			return err
		}
		defer a.Close()

		ref, err := a.AddReferenceFile(args[0], description, tags)
		if err != nil {
			return fmt.Errorf("adding reference file: %w", err)
		}

		fmt.Printf("Added reference file #%d: %s\n", ref.ID, ref.Name)
		if ref.RowCount > 0 || ref.ColumnCount > 0 {
			fmt.Printf("Structure: %d row(s), %d column(s)\n", ref.RowCount, ref.ColumnCount)
		}
		return nil
	},
}

var refListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reference files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RefList")
		if err != nil {
			return err
		}
		defer a.Close()

		refs, err := a.ListReferenceFiles()
		if err != nil {
			return err
		}

		if len(refs) == 0 {
			fmt.Println("No reference files.")
			return nil
		}

		for _, r := range refs {
			lastUsed := "never"
			if r.LastUsed != nil {
				lastUsed = r.LastUsed.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("#%d  %-30s  %8d bytes  used %d time(s)  last %s\n",
				r.ID, r.OriginalName, r.Size, r.UsageCount, lastUsed)
		}
		return nil
	},
}

var refRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a reference file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("RefRemove")
		if err != nil {
			return err
		}
		defer a.Close()

		affected, err := a.RemoveReferenceFile(id)
		if err != nil {
			return fmt.Errorf("removing reference file: %w", err)
		}

		if affected == 0 {
			fmt.Printf("Reference file #%d not found.\n", id)
			return nil
		}
		fmt.Printf("Removed reference file #%d\n", id)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View comparison history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past comparisons",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		a, err := newApp("HistoryList")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.ComparisonHistory(limit, offset)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No comparisons recorded.")
			return nil
		}

		for _, e := range entries {
			identical := "differs"
			if e.Identical {
				identical = "identical"
			}
			exported := ""
			if e.Exported {
				exported = "  [exported]"
			}
			fmt.Printf("#%d  %s  %-30s  vs %-30s  %-9s  %d diff(s)%s\n",
				e.ID,
				e.RunAt.Format("2006-01-02 15:04:05"),
				e.CompareFileName,
				e.ReferenceOriginalName,
				identical,
				e.TotalDifferences,
				exported,
			)
		}
		return nil
	},
}

var historySaveCmd = &cobra.Command{
	Use:   "save RESULT_FILE",
	Short: "Record a comparison result produced by the diff engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refID, _ := cmd.Flags().GetInt64("ref")
		notes, _ := cmd.Flags().GetString("notes")

		a, err := newApp("HistorySave")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.SaveComparisonResult(args[0], refID, notes)
		if err != nil {
			return fmt.Errorf("saving comparison: %w", err)
		}

		fmt.Printf("Saved comparison #%d\n", id)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one comparison with its differences",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("HistoryShow")
		if err != nil {
			return err
		}
		defer a.Close()

		details, err := a.ComparisonDetails(id)
		if err != nil {
			return err
		}

		fmt.Printf("Comparison #%d\n", details.ID)
		fmt.Printf("Date:       %s\n", details.RunAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Reference:  %s\n", details.ReferenceOriginalName)
		fmt.Printf("Compared:   %s\n", details.CompareFileName)
		fmt.Printf("Identical:  %v\n", details.Identical)
		fmt.Printf("Differences: %d\n", details.TotalDifferences)

		if details.Result != nil {
			for i, d := range details.Result.Differences {
				fmt.Printf("%3d. [%s] %s: %s\n", i+1, d.Type, d.Position, d.Description)
			}
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Export a comparison report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("HistoryExport")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.ExportComparison(id, format)
		if err != nil {
			return err
		}

		fmt.Printf("Exported to %s\n", path)
		return nil
	},
}

// settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Read one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SettingsGet")
		if err != nil {
			return err
		}
		defer a.Close()

		value, ok, err := a.Setting(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("setting %q not found", args[0])
		}

		fmt.Println(value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Write one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp("SettingsSet")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetSetting(args[0], args[1], description); err != nil {
			return err
		}

		fmt.Printf("Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SettingsList")
		if err != nil {
			return err
		}
		defer a.Close()

		settings, err := a.AllSettings()
		if err != nil {
			return err
		}

		for _, s := range settings {
			fmt.Printf("%-25s %s\n", s.Key, s.Value)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View activity log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		a, err := newApp("LogList")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.ActivityEntries(limit, offset)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No activity recorded.")
			return nil
		}

		for _, e := range entries {
			status := "ok"
			if !e.Success {
				status = "FAILED"
			}
			fmt.Printf("#%d  %s  %-20s  %-6s  %s\n",
				e.ID,
				e.Timestamp.Format("2006-01-02 15:04:05"),
				e.Action,
				status,
				e.Details,
			)
			if e.ErrorMessage != "" {
				fmt.Printf("     error: %s\n", e.ErrorMessage)
			}
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View catalog statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Statistics()
		if err != nil {
			return err
		}

		fmt.Printf("Reference files:   %d\n", stats.ActiveReferenceFiles)
		fmt.Printf("Comparisons:       %d\n", stats.TotalComparisons)
		fmt.Printf("Identical results: %d\n", stats.IdenticalComparisons)
		fmt.Printf("Different results: %d\n", stats.DifferentComparisons)
		fmt.Printf("Differences found: %d\n", stats.TotalDifferencesFound)
		fmt.Printf("Avg processing:    %.3fs\n", stats.AvgProcessingTime)
		if stats.MostUsedReference != "" {
			fmt.Printf("Most used file:    %s (%d time(s))\n", stats.MostUsedReference, stats.MostUsedReferenceCount)
		}
		if stats.LastComparison != nil {
			fmt.Printf("Last comparison:   %s\n", stats.LastComparison.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// du command
var duCmd = &cobra.Command{
	Use:   "du",
	Short: "View disk usage of managed directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DiskUsage")
		if err != nil {
			return err
		}
		defer a.Close()

		usage, err := a.DiskUsage()
		if err != nil {
			return err
		}

		fmt.Printf("Reference files: %d bytes\n", usage.ReferenceFiles)
		fmt.Printf("Temp files:      %d bytes\n", usage.TempFiles)
		fmt.Printf("Exports:         %d bytes\n", usage.Exports)
		fmt.Printf("Total:           %d bytes\n", usage.Total)
		return nil
	},
}

// temp command
var tempCmd = &cobra.Command{
	Use:   "temp",
	Short: "Manage temporary files",
}

var tempCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all temporary files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("TempClean")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.CleanTempFiles(); err != nil {
			return err
		}
		fmt.Println("Temporary files removed.")
		return nil
	},
}

// maintain command
var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run database maintenance",
	RunE: func(cmd *cobra.Command, args []string) error {
		every, _ := cmd.Flags().GetDuration("every")

		a, err := newApp("Maintain")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Maintain(); err != nil {
			return fmt.Errorf("maintenance failed: %w", err)
		}
		fmt.Println("Maintenance complete.")

		if every > 0 {
			fmt.Printf("Running maintenance every %s, press Ctrl-C to stop.\n", every)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.MaintainEvery(ctx, every); err != nil && ctx.Err() == nil {
				return err
			}
		}
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a database backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Backup")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.Backup()
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backup created: %s\n", path)
		return nil
	},
}

var backupDecryptCmd = &cobra.Command{
	Use:   "decrypt IN OUT",
	Short: "Decrypt an encrypted backup file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupDecrypt")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		if err := a.DecryptBackup(args[0], args[1], passphrase); err != nil {
			return err
		}

		fmt.Printf("Decrypted to %s\n", args[1])
		return nil
	},
}

// vault command
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the off-site backup vault",
}

var vaultValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Verify the vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("VaultValidate")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateVault(); err != nil {
			return err
		}
		fmt.Println("Vault is reachable.")
		return nil
	},
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List off-site backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("VaultList")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListVaultBackups()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No off-site backups.")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

// wipe command
var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all catalog data and reseed defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("wipe deletes all data; pass --yes to confirm")
		}

		a, err := newApp("Wipe")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Wipe(); err != nil {
			return err
		}
		fmt.Println("All data wiped, defaults reseeded.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Generate a backup encryption key pair")
	configCmd.AddCommand(configListCmd)

	// ref subcommands
	refCmd.AddCommand(refAddCmd)
	refAddCmd.Flags().StringP("description", "d", "", "Description for the reference file")
	refAddCmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	refCmd.AddCommand(refListCmd)
	refCmd.AddCommand(refRmCmd)

	// history subcommands
	historyCmd.AddCommand(historyListCmd)
	historyListCmd.Flags().IntP("limit", "n", 50, "Maximum number of comparisons to show")
	historyListCmd.Flags().Int("offset", 0, "Number of comparisons to skip")
	historyCmd.AddCommand(historySaveCmd)
	historySaveCmd.Flags().Int64("ref", 0, "Id of the reference file the comparison was made against")
	historySaveCmd.Flags().String("notes", "", "Free-form notes to store with the run")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyExportCmd.Flags().StringP("format", "f", "json", "Export format: json, txt or csv")

	// settings subcommands
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsSetCmd.Flags().StringP("description", "d", "", "Description for the setting")
	settingsCmd.AddCommand(settingsListCmd)

	// temp subcommands
	tempCmd.AddCommand(tempCleanCmd)

	// backup subcommands
	backupCmd.AddCommand(backupDecryptCmd)

	// vault subcommands
	vaultCmd.AddCommand(vaultValidateCmd)
	vaultCmd.AddCommand(vaultListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(refCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntP("limit", "n", 100, "Maximum number of entries to show")
	logCmd.Flags().Int("offset", 0, "Number of entries to skip")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(duCmd)
	rootCmd.AddCommand(tempCmd)
	rootCmd.AddCommand(maintainCmd)
	maintainCmd.Flags().Duration("every", 0, "Keep running maintenance at this interval")
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(vaultCmd)
	rootCmd.AddCommand(wipeCmd)
}
