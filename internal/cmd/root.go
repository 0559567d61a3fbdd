// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"io"
	"log"
	"os"

	"github.com/azure/azure-ai-foundry-mcp/internal/pkg/azure"
	"github.com/spf13/cobra"
)

type rootFlagsDefinition struct {
	Debug     bool
	EnvFile   string
	HTTPLog   string
	TraceFile string
}

var rootFlags rootFlagsDefinition

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "azure-ai-foundry-mcp <command> [options]",
		Short:         "MCP server for Azure AI Foundry evaluation and agents",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(rootFlags.Debug)
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().BoolVar(
		&rootFlags.Debug,
		"debug",
		false,
		"Enable debug logging to stderr",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootFlags.EnvFile,
		"env-file",
		"",
		"Path of a .env file to load. Defaults to ./.env when present.",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootFlags.HTTPLog,
		"http-log",
		"",
		"Write every Azure request and response to this file",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootFlags.TraceFile,
		"trace-file",
		"",
		"Write OpenTelemetry spans for tool calls to this file",
	)

	rootCmd.AddCommand(newMcpCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// configureLogging sends the standard logger to stderr in debug mode and discards it otherwise.
// stdout carries the MCP transport and is never written to.
func configureLogging(debug bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !debug {
		log.SetOutput(io.Discard)
		azure.DisableSDKLogging()
		return
	}

	log.SetOutput(os.Stderr)
	azure.EnableSDKLogging()
}
