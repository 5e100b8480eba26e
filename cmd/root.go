package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/taskpulse/internal/apierror"
)

// rootCmd represents the base command for the taskpulse application
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskpulse",
		Short: "Manage your tasks and track your progress from the terminal",
		Long: `taskpulse is a client for a personal task API. It keeps you signed in,
manages your tasks and reports how you are doing: tasks completed per day,
a growth score and today's progress.

It can run as:
  - A standalone CLI tool
  - An MCP (Model Context Protocol) server for AI assistants`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addGlobalFlags(cmd)

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newSignupCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newRemindCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newGenerateDocsCmd())
	return cmd
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "taskpulse version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(1)
	}
}

// errorText is what the user sees for err. An expired session always
// reads the same so scripts can match it.
func errorText(err error) string {
	if apierror.IsSessionExpired(err) {
		return apierror.UserMessage(err)
	}
	return "Error: " + apierror.UserMessage(err)
}
