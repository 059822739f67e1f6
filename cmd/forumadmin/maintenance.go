package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/repair"
)

var repairFix bool

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Find (and optionally fix) errors in the forum's boards, topics and messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		outcome, err := repair.Run(cmd.Context(), repairFix)
		if err != nil {
			fautil.LogError(err).Bool("fix", repairFix).Msg("Unable to repair boards")
			return err
		}
		printResults("Found", outcome.Found)
		if repairFix && outcome.Fixed != nil {
			for _, check := range repair.Checks {
				if count, ok := outcome.Fixed[check.ID]; ok {
					fmt.Printf("Fixed %s: %d\n", check.Label, count)
				}
			}
			printResults("Remaining", outcome.Remaining)
			if err = fasql.LogAction(nil, fasql.AdminLog, "repair_boards", 0, "", map[string]any{
				"found":  repair.TotalErrors(outcome.Found),
				"source": "commandLine",
			}); err != nil {
				fautil.LogError(err).Msg("Unable to log board repair")
				return err
			}
		}
		fautil.LogInfo().Str("source", "commandLine").Bool("fix", repairFix).
			Int("found", repair.TotalErrors(outcome.Found)).Msg("Repaired boards")
		return nil
	},
}

func printResults(prefix string, results []repair.Result) {
	total := repair.TotalErrors(results)
	fmt.Printf("%s %d errors\n", prefix, total)
	for _, result := range results {
		if result.Count > 0 {
			fmt.Printf("  %s: %d\n", result.Label, result.Count)
		}
	}
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete log entries older than the configured pruning ages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		options := fasql.ParsePruningOptions(fasql.GetSetting("pruningOptions"))
		if !options.Enabled {
			fmt.Println("Log pruning is disabled")
			return nil
		}
		opts := fasql.ContextOptions(cmd.Context())
		result, err := fasql.PruneLogs(opts, options, time.Now())
		if err != nil {
			fautil.LogError(err).Msg("Unable to prune logs")
			return err
		}
		if err = fasql.LogAction(opts, fasql.AdminLog, "prune_logs", 0, "", map[string]any{
			"source": "commandLine",
		}); err != nil {
			fautil.LogError(err).Msg("Unable to log log pruning")
			return err
		}
		for _, name := range fasql.PruneLogNames {
			if deleted, ok := result[name]; ok {
				fmt.Printf("%s: %d deleted\n", name, deleted)
			}
		}
		fautil.LogInfo().Str("source", "commandLine").Object("deleted", result).Msg("Pruned logs")
		return nil
	},
}

var newStaffRank int

var newStaffCmd = &cobra.Command{
	Use:   "newstaff <username> <password>",
	Short: "Create a staff account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := fasql.ContextOptions(cmd.Context())
		staff, err := fasql.NewStaff(opts, args[0], args[1], newStaffRank)
		if errors.Is(err, fasql.ErrStaffExists) {
			return fmt.Errorf("a staff account named %q already exists", args[0])
		} else if err != nil {
			fautil.LogError(err).Str("username", args[0]).Msg("Failed creating new staff account")
			return err
		}
		fautil.LogInfo().Str("source", "commandLine").Str("username", staff.Username).Int("rank", staff.Rank).
			Msg("New staff account created")
		fmt.Printf("Created %s account %q\n", fasql.RankTitle(staff.Rank), staff.Username)
		return nil
	},
}
