package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/intake/internal/config"
	"github.com/dharsanguruparan/intake/internal/intake"
	"github.com/dharsanguruparan/intake/internal/reportlog"
)

func newReportsCmd() *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Print records from the configured report log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := reportlog.Open(cmd.Context(), reportlog.Options{
				Driver:      cfg.ReportStore,
				JSONPath:    cfg.ReportLog,
				SQLitePath:  cfg.SQLitePath,
				DatabaseURL: cfg.DatabaseURL,
			})
			if err != nil {
				return err
			}
			defer log.Close()
			records, err := log.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WAKTU\tIP\tPATH")
			for _, rec := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Waktu, rec.IP, rec.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Only show the last N records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Dry-run the upload and report validation rules",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "report <path>",
			Short: "Validate a report path and print the sanitized value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := intake.CheckReport(args)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "upload <file-name>",
			Short: "Check a file name against the configured upload policy",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				policy := intake.NewPolicy(cfg.AllowedExtensions, cfg.Blacklist)
				file, err := policy.CheckUpload(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), file.PublicPath())
				return nil
			},
		},
	)
	return cmd
}
