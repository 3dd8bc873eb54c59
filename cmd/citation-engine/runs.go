// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/citation-engine/internal/rates"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the archive of past analysis runs",
	Long: `Runs lists and retrieves analysis documents archived with
"analyze --save". The archive is a local SQLite database under the
results directory.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	RunE:  runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-20s  %-16s  %-6s  %-10s  %s\n",
		"ID", "Created", "User", "Papers", "q", "phi")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 72))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-4d  %-20s  %-16s  %-6d  %-10.4f  %.4f\n",
			r.ID, r.CreatedAt, r.UserID, r.NPapers, r.ProcessVar, r.Overdispersion)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

var runsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print or export one archived rates document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("run ID must be an integer, got %q", args[0])
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.GetRun(context.Background(), id)
	if err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := rates.WriteDocument(output, doc); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", output)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func init() {
	runsShowCmd.Flags().StringP("output", "o", "", "write the document to a file instead of stdout")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
