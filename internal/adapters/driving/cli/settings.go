package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage service settings",
	Long: `View and change service settings such as the worker count, scheduler
tick and admin API address. Settings are stored in config.toml and can be
overridden with SERCHA_INDEXER_* environment variables.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognised setting keys",
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Println(field("  Data dir", orDefault(settings.DataDir, "(config directory)")))
	cmd.Println(field("  Log level", settings.LogLevel))
	cmd.Println(field("  Log file", orDefault(settings.LogFile, "(disabled)")))
	cmd.Println()

	cmd.Println("[Indexing]")
	cmd.Println(field("  Workers", fmt.Sprint(settings.Workers)))
	cmd.Println(field("  Queue size", fmt.Sprint(settings.QueueSize)))
	cmd.Println(field("  History limit", fmt.Sprint(settings.HistoryLimit)))
	cmd.Println()

	cmd.Println("[Scheduler]")
	cmd.Println(field("  Tick", settings.TickInterval.String()))
	cmd.Println(field("  Daily catch-up", yesNo(settings.CatchUpDaily)))
	cmd.Println(field("  Watch debounce", settings.WatchDebounce.String()))
	cmd.Println()

	cmd.Println("[HTTP]")
	cmd.Println(field("  Address", orDefault(settings.HTTPAddr, "(disabled)")))

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s = %s\n", args[0], args[1])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
