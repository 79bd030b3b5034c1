package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geofence/pkg/geocode"
)

type distanceResult struct {
	From           geocode.Coordinate `json:"from" yaml:"from"`
	To             geocode.Coordinate `json:"to" yaml:"to"`
	DistanceMeters float64            `json:"distance_meters" yaml:"distance_meters"`
}

var distanceCmd = &cobra.Command{
	Use:   "distance <lat1> <lon1> <lat2> <lon2>",
	Short: "Great-circle distance in meters between two coordinates",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseCoordinate(args[0], args[1])
		if err != nil {
			return err
		}
		to, err := parseCoordinate(args[2], args[3])
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, distanceResult{
			From:           from,
			To:             to,
			DistanceMeters: geocode.DistanceMeters(from, to),
		})
	},
}

func init() {
	rootCmd.AddCommand(distanceCmd)
}

func parseCoordinate(lat, lon string) (geocode.Coordinate, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geocode.Coordinate{}, eris.Errorf("invalid latitude %q", lat)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return geocode.Coordinate{}, eris.Errorf("invalid longitude %q", lon)
	}
	c := geocode.Coordinate{Latitude: la, Longitude: lo}
	if !c.Valid() {
		return geocode.Coordinate{}, eris.Errorf("coordinate %s out of range", c)
	}
	return c, nil
}
