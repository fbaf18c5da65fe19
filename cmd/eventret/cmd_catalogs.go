package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"eventret/internal/catalog"
	"eventret/internal/domain"
)

var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "List the built-in and configured event catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		reg, err := catalog.Load(cfg.Catalogs)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSYMBOL\tEVENTS\tDESCRIPTION")
		for _, c := range reg.All() {
			ids := make([]string, len(c.Events))
			for i, ev := range c.Events {
				ids[i] = ev.ID
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Symbol, strings.Join(ids, ","), c.Description)
		}
		return tw.Flush()
	},
}

var offsetsCmd = &cobra.Command{
	Use:   "offsets",
	Short: "List the entry and exit offsets that runs accept",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		o := catalog.OffsetsFromConfig(cfg.Offsets)

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SIDE\tSESSIONS\tLABEL")
		printOffsets(tw, "entry", o.Entry)
		printOffsets(tw, "exit", o.Exit)
		return tw.Flush()
	},
}

func printOffsets(tw *tabwriter.Writer, side string, offs []domain.SessionOffset) {
	for _, so := range offs {
		fmt.Fprintf(tw, "%s\t%+d\t%s\n", side, so.Sessions, so.Label)
	}
}

func init() {
	rootCmd.AddCommand(catalogsCmd, offsetsCmd)
}
