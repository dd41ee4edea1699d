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
	"fmt"
	"text/tabwriter"

	"github.com/OpenPSG/pincer"
	"github.com/OpenPSG/pincer/edf"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var channel int

	cmd := &cobra.Command{
		Use:   "inspect <recording.edf>",
		Short: "Print the header and per sweep statistics of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := edf.OpenSweeps(args[0], channel)
			if err != nil {
				return err
			}
			defer sf.Close()

			hdr := sf.Header()
			sig := hdr.Signals[channel]

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "patient:     %s\n", hdr.PatientID)
			fmt.Fprintf(out, "recording:   %s\n", hdr.RecordingID)
			fmt.Fprintf(out, "start:       %s\n", hdr.StartTime.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "channel:     %d of %d (%s, %s)\n", channel, hdr.SignalCount, sig.Label, sig.PhysicalDimension)
			fmt.Fprintf(out, "sample rate: %g Hz\n", sf.SampleRate())
			fmt.Fprintf(out, "sweeps:      %d x %d samples\n\n", sf.SweepCount(), sig.SamplesPerRecord)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SWEEP\tMIN\tMAX\tMEAN")
			for i := 0; i < sf.SweepCount(); i++ {
				sweep, err := sf.Sweep(i)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.3f\n", i, pincer.Min(sweep), pincer.Max(sweep), pincer.Mean(sweep))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&channel, "channel", "c", 0, "channel to inspect")
	return cmd
}
