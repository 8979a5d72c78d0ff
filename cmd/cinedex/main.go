// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autobrr/cinedex/internal/buildinfo"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "cinedex",
		Short: "Telegram media catalog bot",
		Long:  "cinedex indexes media files posted to a Telegram channel and serves them back through AI-assisted search.",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file or directory")

	rootCmd.AddCommand(RunServeCommand(&configPath))
	rootCmd.AddCommand(RunVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(buildinfo.String())
		},
	}
}
