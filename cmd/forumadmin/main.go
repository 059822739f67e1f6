package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fautil"
)

var (
	versionStr string

	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "forumadmin",
	Short: "Forum administration panel",
	Long: `forumadmin serves the administration center of a forum and runs its maintenance tasks.

Run without a command to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return initCommon()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		fasql.Close()
		fautil.CloseLog()
	},
	RunE: runServe,
}

// initCommon loads the configuration, opens the logs and connects to the database, creating the tables
// and default settings if they don't exist yet
func initCommon() error {
	if err := config.LoadConfig(cfgFile); err != nil {
		return fmt.Errorf("unable to load configuration: %w", err)
	}
	systemCritical := config.GetSystemCriticalConfig()
	if err := fautil.InitLogs(systemCritical.LogDir, verbose || systemCritical.Verbose); err != nil {
		return fmt.Errorf("unable to open logs: %w", err)
	}
	if _, err := config.LoadFileSettings(); err != nil {
		fautil.LogError(err).Str("settingsFile", systemCritical.SettingsFile).Msg("Unable to load settings file")
		return err
	}
	if err := fasql.ConnectToDB(config.GetSQLConfig()); err != nil {
		fautil.LogError(err).Str("dbType", systemCritical.DBtype).Msg("Failed to connect to the database")
		return fmt.Errorf("failed to connect to the database: %w", err)
	}
	fautil.LogInfo().Str("dbType", systemCritical.DBtype).Msg("Connected to database")
	if err := fasql.ProvisionTables(nil); err != nil {
		fautil.LogError(err).Msg("Failed to create the database tables")
		return err
	}
	if err := fasql.SeedDefaultSettings(nil); err != nil {
		fautil.LogError(err).Msg("Failed to seed the default settings")
		return err
	}
	return fasql.LoadSettings(nil)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to forumadmin.json (searched for in the standard locations if not set)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug events")

	repairCmd.Flags().BoolVar(&repairFix, "fix", false, "fix the errors that are found")
	newStaffCmd.Flags().IntVar(&newStaffRank, "rank", fasql.AdminPerms, "rank of the new account (1: janitor, 2: moderator, 3: administrator)")
	settingsCmd.PersistentFlags().BoolVar(&settingsFile, "file", false, "use the settings file instead of the settings table")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
	rootCmd.AddCommand(serveCmd, repairCmd, pruneCmd, newStaffCmd, settingsCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {},
	Run: func(*cobra.Command, []string) {
		fmt.Println("forumadmin", versionStr)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
