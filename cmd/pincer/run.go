// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/OpenPSG/pincer/celldex"
	"github.com/OpenPSG/pincer/internal/config"
	"github.com/OpenPSG/pincer/internal/diag"
	"github.com/OpenPSG/pincer/store"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:     "run <config.yaml>",
		Short:   "Run the configured analyses over a cell index",
		Example: "pincer run experiments/psilocybin.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			report, err := run(ctx, args[0], cmd)
			if err != nil {
				return err
			}
			if strict && len(report.Failures) > 0 {
				return fmt.Errorf("%d items failed", len(report.Failures))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when any item fails")
	return cmd
}

func run(ctx context.Context, path string, cmd *cobra.Command) (*celldex.Report, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, closer, err := diag.NewLogger(diag.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Console:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	jobs := make([]celldex.Job, 0, len(cfg.Analyses))
	for i, a := range cfg.Analyses {
		built, err := a.Build()
		if err != nil {
			return nil, fmt.Errorf("analyses[%d]: %w", i, err)
		}
		jobs = append(jobs, celldex.Job{Group: a.Group, Analysis: built})
	}

	ix, err := celldex.ReadIndexFile(cfg.Index)
	if err != nil {
		return nil, err
	}

	var labels *celldex.Labels
	if cfg.Labels != "" {
		if labels, err = celldex.ReadLabelsFile(cfg.Labels); err != nil {
			return nil, err
		}
	}

	started := time.Now()
	p := &celldex.Processor{
		Dir:    cfg.Source,
		Naming: celldex.Naming{Width: cfg.Naming.Width, Ext: cfg.Naming.Ext},
		Open:   celldex.EDFOpener(cfg.Channel),
		Log:    log,
	}
	report, err := p.Process(ctx, ix, jobs)
	if err != nil {
		return nil, err
	}

	for _, s := range cfg.Secondary {
		cols := make([]celldex.Column, len(s.Columns))
		for i, c := range s.Columns {
			cols[i] = celldex.Column{Trace: c.Trace, Label: c.Label}
		}
		report.Table.AddSecondary(s.Name, cols)
	}

	if cfg.Output.CSV != "" {
		if err := celldex.WriteCSVFile(cfg.Output.CSV, report.Table, labels); err != nil {
			return nil, err
		}
		log.WithField("file", cfg.Output.CSV).Info("Wrote results")
	}

	if cfg.Output.SQLite != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(cfg.Output.SQLite), 0o755); err != nil {
			return nil, fmt.Errorf("error creating output directory: %w", err)
		}

		db, err := store.Open(cfg.Output.SQLite)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		id, err := db.Save(ctx, started, string(raw), report)
		if err != nil {
			return nil, err
		}
		log.WithField("file", cfg.Output.SQLite).WithField("run", id.String()).Info("Stored results")
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "analysed %d recordings, %d failed, %d values\n",
		report.Analysed, len(report.Failures), report.Table.Len())
	return report, err
}
