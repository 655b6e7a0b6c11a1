package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"meteo/manager"
	"meteo/table"
)

// MinQueryLength is the shortest location query worth sending.
const MinQueryLength = 3

// Defaults are used when the command line names no location or output.
type Defaults struct {
	Place      string
	Coordinate manager.GeoCoordinate
	Output     string
}

type Server interface {
	Listen(ctx context.Context) error
}

func New(weather manager.Service, defaults Defaults, server Server) (*cobra.Command, error) {
	var (
		place     string
		pick      int
		latitude  float64
		longitude float64
		output    string
	)

	cmd := &cobra.Command{
		Use:           "meteo",
		Args:          cobra.NoArgs,
		Short:         "Current temperature and hourly history from Open-Meteo",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			location := manager.Location{Name: defaults.Place, Coordinate: &defaults.Coordinate}
			switch {
			case cmd.Flags().Changed("place"):
				location = manager.Location{Name: place, Pick: pick}
			case cmd.Flags().Changed("latitude"):
				location = manager.Location{Coordinate: &manager.GeoCoordinate{Latitude: latitude, Longitude: longitude}}
			}

			report, err := weather.Get(cmd.Context(), location)
			if err != nil {
				return err
			}

			cmd.Printf("Current temperature in %s: %.1f °C\n", report.Place, report.Forecast.Current.TemperatureCelsius)

			switch output {
			case "":
				return nil
			case "-":
				return table.Write(cmd.OutOrStdout(), report.Forecast.Hourly)
			default:
				if err := table.WriteFile(output, report.Forecast.Hourly); err != nil {
					return err
				}
				cmd.Printf("Written weather history to %s\n", output)
				return nil
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&place, "place", "p", "", "place name to look up")
	flags.IntVar(&pick, "pick", 0, "index of the search result to use with --place")
	flags.Float64Var(&latitude, "latitude", 0, "latitude in degrees")
	flags.Float64Var(&longitude, "longitude", 0, "longitude in degrees")
	flags.StringVarP(&output, "out", "o", defaults.Output, `hourly table destination, "-" for stdout, empty to skip`)
	cmd.MarkFlagsRequiredTogether("latitude", "longitude")
	cmd.MarkFlagsMutuallyExclusive("place", "latitude")

	cmd.AddCommand(newSearch(weather))
	if server != nil {
		cmd.AddCommand(newServe(server))
	}

	return cmd, nil
}

func newSearch(weather manager.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Args:  cobra.MinimumNArgs(1),
		Short: "List locations matching a place name",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if len([]rune(query)) < MinQueryLength {
				cmd.Println("Query too short, ignoring.")
				return nil
			}

			candidates, err := weather.Resolve(cmd.Context(), query)
			if err != nil {
				return err
			}
			if len(candidates) == 0 {
				cmd.Printf("No locations found for query: %s\n", query)
				return nil
			}

			for i, candidate := range candidates {
				cmd.Printf("%2d  %-60s %9.4f %9.4f %6.0f m\n",
					i,
					candidate.Label(),
					candidate.Latitude,
					candidate.Longitude,
					candidate.Elevation,
				)
			}

			return nil
		},
	}
}

func newServe(server Server) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "Serve the location search page and weather API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Listen(cmd.Context())
		},
	}
}
