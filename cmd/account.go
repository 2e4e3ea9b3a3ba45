package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/snapapi-go/pkg/snapapi"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show API usage for the current billing period",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		return runUsage(cmd.Context(), client, os.Stdout)
	},
}

func runUsage(ctx context.Context, client snapapi.Client, out io.Writer) error {
	u, err := client.Usage(ctx)
	if err != nil {
		return eris.Wrap(err, "usage")
	}
	_, err = fmt.Fprintf(out, "used %d of %d (%d remaining), resets %s\n", u.Used, u.Limit, u.Remaining, u.ResetAt)
	return err
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the API is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		p, err := client.Ping(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "ping")
		}
		_, err = fmt.Fprintln(os.Stdout, p.Status)
		return err
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List device presets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		res, err := client.Devices(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "devices")
		}
		formatDevices(os.Stdout, res)
		return nil
	},
}

// formatDevices writes presets grouped by category, categories sorted.
func formatDevices(out io.Writer, res *snapapi.DevicesResult) {
	categories := make([]string, 0, len(res.Devices))
	for c := range res.Devices {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tID\tNAME\tSIZE\tSCALE\tMOBILE")
	for _, c := range categories {
		for _, d := range res.Devices[c] {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%g\t%t\n", c, d.ID, d.Name, d.Width, d.Height, d.DeviceScaleFactor, d.IsMobile)
		}
	}
	_ = w.Flush()
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Show what the API supports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		res, err := client.Capabilities(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "capabilities")
		}
		return printJSON(os.Stdout, res)
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(capabilitiesCmd)
}
