package main

import (
	"github.com/aretw0/intake/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, and remove sessions held by the configured store.`,
}

// withSessions opens the configured engine and hands it to fn.
func withSessions(cmd *cobra.Command, fn func(s cli.Sessions) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	eng, closeStore, err := cli.BuildEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(eng)
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(s cli.Sessions) error {
			return cli.ListSessions(cmd.Context(), cmd.OutOrStdout(), s)
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(s cli.Sessions) error {
			return cli.InspectSession(cmd.Context(), cmd.OutOrStdout(), s, args[0])
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(s cli.Sessions) error {
			for _, id := range args {
				if err := cli.RemoveSession(cmd.Context(), cmd.OutOrStdout(), s, id); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionRmCmd)
}
