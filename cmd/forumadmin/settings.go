package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fautil"
)

var settingsFile bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or change forum settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value of a setting",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if settingsFile {
			fmt.Println(config.GetFileSetting(args[0]))
			return
		}
		fmt.Println(fasql.GetSetting(args[0]))
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change the value of a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := map[string]string{args[0]: args[1]}
		var err error
		if settingsFile {
			err = config.SaveFileSettings(values)
		} else {
			err = fasql.UpdateSettings(fasql.ContextOptions(cmd.Context()), values)
		}
		if err != nil {
			fautil.LogError(err).Str("setting", args[0]).Bool("file", settingsFile).Msg("Unable to save setting")
			return err
		}
		fautil.LogInfo().Str("source", "commandLine").Str("setting", args[0]).Bool("file", settingsFile).
			Msg("Setting changed")
		return nil
	},
}
