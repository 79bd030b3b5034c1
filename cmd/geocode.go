package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/geofence/pkg/geocode"
)

type geocodeResult struct {
	Query     string             `json:"query" yaml:"query"`
	Found     bool               `json:"found" yaml:"found"`
	Candidate *geocode.Candidate `json:"candidate,omitempty" yaml:"candidate,omitempty"`
}

type reverseResult struct {
	Coordinate  geocode.Coordinate `json:"coordinate" yaml:"coordinate"`
	DisplayName string             `json:"display_name" yaml:"display_name"`
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode <text...>",
	Short: "Resolve place text to its best coordinate",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initGeocoder(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		q := strings.Join(args, " ")
		c := env.Geocoder.Forward(cmd.Context(), q)
		return writeOutput(cmd.OutOrStdout(), outputFormat, geocodeResult{Query: q, Found: c != nil, Candidate: c})
	},
}

var reverseCmd = &cobra.Command{
	Use:   "reverse <lat> <lon>",
	Short: "Describe a coordinate, falling back to the formatted coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := parseCoordinate(args[0], args[1])
		if err != nil {
			return err
		}

		env, err := initGeocoder(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		return writeOutput(cmd.OutOrStdout(), outputFormat, reverseResult{
			Coordinate:  coord,
			DisplayName: env.Geocoder.Reverse(cmd.Context(), coord),
		})
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	rootCmd.AddCommand(reverseCmd)
}
