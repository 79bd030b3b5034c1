package main

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Resolve one query per line from a file or stdin",
	Long:  "Reads one query per line from the given file, or stdin when the file is omitted or \"-\". Blank lines and lines starting with # are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrapf(err, "open %s", args[0])
			}
			defer f.Close() //nolint:errcheck
			in = f
		}

		queries, err := readQueries(in)
		if err != nil {
			return err
		}
		if len(queries) == 0 {
			return eris.New("no queries to resolve")
		}

		env, err := initGeocoder(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		found := env.Geocoder.BatchForward(ctx, queries)
		results := make([]geocodeResult, len(queries))
		matched := 0
		for i, q := range queries {
			results[i] = geocodeResult{Query: q, Found: found[i] != nil, Candidate: found[i]}
			if found[i] != nil {
				matched++
			}
		}

		zap.L().Info("batch complete",
			zap.Int("queries", len(queries)),
			zap.Int("matched", matched),
		)
		return writeOutput(cmd.OutOrStdout(), outputFormat, results)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

// readQueries returns the trimmed, non-empty, non-comment lines of r.
func readQueries(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read queries")
	}
	return out, nil
}
