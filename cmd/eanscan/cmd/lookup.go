package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/eanscan/internal/ean13"
	"github.com/MeKo-Tech/eanscan/internal/lookup"
)

func newLookupCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Manage the list of known product codes",
	}

	importCmd := &cobra.Command{
		Use:   "import <list> <db>",
		Short: "Import a newline-delimited code list into a database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			db, err := lookup.OpenBolt(args[1])
			if err != nil {
				return err
			}
			n, err := db.Import(f)
			if cerr := db.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d code(s) into %s\n", n, args[1])
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check <code>...",
		Short: "Report whether codes are known",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Lookup.Path
			if path == "" {
				return errors.New("no lookup configured (use --lookup or lookup.path)")
			}
			store, err := lookup.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			for _, raw := range args {
				code := lookup.Normalize(raw)
				if err := ean13.Validate(code); err != nil {
					return fmt.Errorf("%s: %w", raw, err)
				}
				known, err := store.Contains(code)
				if err != nil {
					return err
				}
				status := "unknown"
				if known {
					status = "known"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", code, status)
			}
			return nil
		},
	}
	checkCmd.Flags().String("lookup", "", "known-code list (.txt) or database (.db)")
	bindFlag(checkCmd.Flags(), "lookup", "lookup.path")

	countCmd := &cobra.Command{
		Use:   "count <db>",
		Short: "Print the number of codes in a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := lookup.OpenBolt(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			n, err := db.Count()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.AddCommand(importCmd, checkCmd, countCmd)
	return cmd
}
