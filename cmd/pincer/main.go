// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Command pincer analyses electrophysiology sweep recordings.
package main

import (
	"fmt"
	"os"

	"github.com/OpenPSG/pincer/analysis"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pincer",
		Short:         "Analyse electrophysiology sweep recordings",
		Long:          "Run region of interest and event detection analyses over the recordings of a cell index",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newAnalysesCmd(),
		newInspectCmd(),
		newSynthCmd(),
	)
	return rootCmd
}

func newAnalysesCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "analyses",
		Aliases: []string{"ls"},
		Short:   "List the available analyses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range analysis.Names() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
