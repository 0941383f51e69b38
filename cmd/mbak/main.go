package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mbak/internal/app"
	"mbak/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "CreateBackup").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts for a passphrase without echoing it.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

var rootCmd = &cobra.Command{
	Use:   "mbak",
	Short: "Integrated backup tool for the marketplace data store",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init DATABASE_URL",
	Short: "Initialize configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(args[0], defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Database URL: %s\n", cfg.DatabaseURL)
		fmt.Printf("Backup Dir:   %s\n", cfg.BackupDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Database URL:  %s\n", cfg.DatabaseURL)
		fmt.Printf("Backup Dir:    %s\n", cfg.BackupDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Retention:     %d day(s)\n", cfg.RetentionDays)
		fmt.Printf("Compression:   %t\n", cfg.CompressionEnabled)
		fmt.Printf("Encryption:    %t\n", cfg.EncryptionEnabled)
		fmt.Printf("Schedule:      every %d hour(s)\n", cfg.ScheduleIntervalHours)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("Passphrase for private key: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [NAME]",
	Short: "Create a full backup",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "backup"
		if len(args) == 1 {
			name = args[0]
		}

		a, err := newApp("CreateBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.CreateIntegratedBackup(name)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backup created: %s (%d bytes)\n", info.Path, info.SizeBytes)
		fmt.Printf("Checksum: %s\n", info.Checksum)
		return nil
	},
}

var backupIncrementalCmd = &cobra.Command{
	Use:   "incremental",
	Short: "Create an incremental backup of entities changed since a checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		sinceStr, _ := cmd.Flags().GetString("since")
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return fmt.Errorf("parsing --since (want RFC 3339, e.g. 2026-01-02T15:04:05Z): %w", err)
		}

		a, err := newApp("CreateIncremental")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.CreateIncrementalBackup(since)
		if err != nil {
			return fmt.Errorf("incremental backup failed: %w", err)
		}

		fmt.Printf("Incremental backup created: %s (%d bytes)\n", info.Path, info.SizeBytes)
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore PATH",
	Short: "Restore the data store from a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if strings.HasSuffix(path, ".enc") {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		if err := a.RestoreIntegratedBackup(path, passphrase); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Println("Restore complete.")
		return nil
	},
}

// verify command
var verifyCmd = &cobra.Command{
	Use:   "verify PATH",
	Short: "Verify a backup's integrity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		unlock, _ := cmd.Flags().GetBool("unlock")

		a, err := newApp("Verify")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if unlock && strings.HasSuffix(path, ".enc") {
			passphrase, err = readPassphrase("Passphrase: ")
			if err != nil {
				return err
			}
		}

		valid, err := a.VerifyBackup(path, passphrase)
		if !valid {
			fmt.Printf("INVALID: %v\n", err)
			return fmt.Errorf("backup is invalid")
		}

		fmt.Println("Backup is valid.")
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups in the backup directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.ListBackups()
		if err != nil {
			return err
		}

		if len(infos) == 0 {
			fmt.Println("No backups.")
			return nil
		}

		for _, info := range infos {
			flags := ""
			if info.Compressed {
				flags += "gz "
			}
			if info.Encrypted {
				flags += "enc"
			}
			fmt.Printf("%s  %-11s  %9d  %-6s  %s\n",
				info.CreatedAt.Format("2006-01-02 15:04:05"),
				info.Kind,
				info.SizeBytes,
				strings.TrimSpace(flags),
				info.Path,
			)
		}
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete backups older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Cleanup")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.CleanupExpiredBackups()
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}

		fmt.Printf("Removed %d expired backup(s)\n", count)
		return nil
	},
}

// schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run scheduled backups until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		now, _ := cmd.Flags().GetBool("now")

		a, err := newApp("Schedule")
		if err != nil {
			return err
		}
		defer a.Close()

		if now {
			a.RunScheduledCycle()
		}

		a.StartScheduledBackups()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		a.StopScheduledBackups()
		return nil
	},
}

// store command
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the data store",
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending data store schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MigrateStore")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.MigrateStore(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		fmt.Println("Data store schema is up to date.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	keysCmd.AddCommand(keysInitCmd)

	backupIncrementalCmd.Flags().String("since", "", "checkpoint timestamp (RFC 3339)")
	backupIncrementalCmd.MarkFlagRequired("since")
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupIncrementalCmd)

	verifyCmd.Flags().Bool("unlock", false, "unlock the private key to fully decode encrypted backups")

	scheduleCmd.Flags().Bool("now", false, "run one backup+cleanup cycle immediately on start")

	storeCmd.AddCommand(storeMigrateCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(storeCmd)
}
