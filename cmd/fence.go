package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geofence/pkg/geocode"
)

var fenceTolerance float64

type fenceResult struct {
	Query     string             `json:"query" yaml:"query"`
	Found     bool               `json:"found" yaml:"found"`
	Reference *geocode.Candidate `json:"reference,omitempty" yaml:"reference,omitempty"`
	Fence     *geocode.Fence     `json:"fence,omitempty" yaml:"fence,omitempty"`
}

var fenceCmd = &cobra.Command{
	Use:   "fence <text> <lat> <lon>",
	Short: "Check whether a position lies within a resolved place",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if fenceTolerance < 0 {
			return eris.New("tolerance must not be negative")
		}
		observed, err := parseCoordinate(args[1], args[2])
		if err != nil {
			return err
		}

		env, err := initGeocoder(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		res := fenceResult{Query: args[0]}
		if ref := env.Geocoder.Forward(cmd.Context(), args[0]); ref != nil {
			f := geocode.Evaluate(*ref, observed, fenceTolerance)
			res.Found, res.Reference, res.Fence = true, ref, &f
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

func init() {
	fenceCmd.Flags().Float64Var(&fenceTolerance, "tolerance", 100, "allowed distance in meters beyond the place's own radius")
	rootCmd.AddCommand(fenceCmd)
}
