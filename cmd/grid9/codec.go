package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmcloughlin/geohash"
	"github.com/spf13/cobra"

	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/models"
	"github.com/1F47E/grid9/pkg/spatial"
)

type codeResult struct {
	Code string  `json:"code" yaml:"code"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

type distanceResult struct {
	From      string  `json:"from" yaml:"from"`
	To        string  `json:"to" yaml:"to"`
	DistanceM float64 `json:"distance_m" yaml:"distance_m"`
}

type validateResult struct {
	Input     string `json:"input" yaml:"input"`
	Valid     bool   `json:"valid" yaml:"valid"`
	Formatted bool   `json:"formatted" yaml:"formatted"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

type neighborsResult struct {
	Code      string   `json:"code" yaml:"code"`
	Neighbors []string `json:"neighbors" yaml:"neighbors"`
}

type geohashResult struct {
	Code    string `json:"code" yaml:"code"`
	Geohash string `json:"geohash" yaml:"geohash"`
}

func (a *app) encodeCmd() *cobra.Command {
	var lat, lon float64
	var human bool

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a coordinate into a grid9 code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := grid9.Encode(lat, lon, human)
			if err != nil {
				return err
			}
			return a.out.print(codeResult{Code: code, Lat: lat, Lon: lon}, func(w io.Writer) {
				line(w, valueStyle.Render(code))
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in degrees")
	cmd.Flags().BoolVarP(&human, "human", "H", false, "Format as XXX-XXX-XXX")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func (a *app) decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <code>...",
		Short: "Decode grid9 codes into coordinates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := spatial.BatchDecode(args)
			if err != nil {
				return err
			}

			results := make([]codeResult, len(args))
			for i, c := range coords {
				results[i] = codeResult{Code: grid9.RemoveFormatting(args[i]), Lat: c.Lat, Lon: c.Lon}
			}
			return a.out.print(results, func(w io.Writer) {
				for _, r := range results {
					fmt.Fprintf(w, "%s  %s\n", labelStyle.Render(r.Code), valueStyle.Render(fmt.Sprintf("%.6f, %.6f", r.Lat, r.Lon)))
				}
			})
		},
	}
}

func (a *app) distanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance <code> <code>",
		Short: "Great-circle distance between two codes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := grid9.CalculateDistance(args[0], args[1])
			if err != nil {
				return err
			}
			return a.out.print(distanceResult{From: args[0], To: args[1], DistanceM: d}, func(w io.Writer) {
				stat(w, "Distance", formatMeters(d))
			})
		},
	}
}

func (a *app) precisionCmd() *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "precision",
		Short: "Quantization error at a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := grid9.GetActualPrecision(lat, lon)
			if err != nil {
				return err
			}
			return a.out.print(info, func(w io.Writer) {
				stat(w, "Latitude error", formatMeters(info.LatErrorM))
				stat(w, "Longitude error", formatMeters(info.LonErrorM))
				stat(w, "Total error", formatMeters(info.TotalErrorM))
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in degrees")
	_ = cmd.MarkFlagRequired("lat")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <code>...",
		Short: "Check whether strings are valid grid9 codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]validateResult, len(args))
			invalid := 0
			for i, s := range args {
				results[i] = validateResult{
					Input:     s,
					Valid:     grid9.IsValidEncoding(s),
					Formatted: grid9.IsFormattedForHumans(s),
				}
				if !results[i].Valid {
					invalid++
					if _, _, err := grid9.Decode(s); err != nil {
						results[i].Error = err.Error()
					}
				}
			}

			err := a.out.print(results, func(w io.Writer) {
				for _, r := range results {
					if r.Valid {
						line(w, okStyle.Render("✓ "+r.Input))
					} else {
						line(w, badStyle.Render("✗ "+r.Input)+" "+dimStyle.Render(r.Error))
					}
				}
			})
			if err != nil {
				return err
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d codes are invalid", invalid, len(args))
			}
			return nil
		},
	}
}

func (a *app) formatCmd() *cobra.Command {
	var strip bool

	cmd := &cobra.Command{
		Use:   "format <code>",
		Short: "Convert between XXXXXXXXX and XXX-XXX-XXX forms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !grid9.IsValidEncoding(args[0]) {
				_, _, err := grid9.Decode(args[0])
				return err
			}
			code := grid9.RemoveFormatting(args[0])
			if !strip {
				code = grid9.FormatForHumans(code)
			}
			return a.out.print(map[string]string{"code": code}, func(w io.Writer) {
				line(w, valueStyle.Render(code))
			})
		},
	}

	cmd.Flags().BoolVar(&strip, "strip", false, "Remove dashes instead of adding them")
	return cmd
}

func (a *app) neighborsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors <code>",
		Short: "List the cells adjacent to a code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			neighbors, err := grid9.Neighbors(args[0])
			if err != nil {
				return err
			}
			res := neighborsResult{Code: grid9.RemoveFormatting(args[0]), Neighbors: neighbors}
			return a.out.print(res, func(w io.Writer) {
				for _, n := range neighbors {
					line(w, n)
				}
			})
		},
	}
}

func (a *app) geohashCmd() *cobra.Command {
	var precision uint
	var reverse bool

	cmd := &cobra.Command{
		Use:   "geohash <code|geohash>",
		Short: "Convert a grid9 code to a geohash, or back with --reverse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if precision < 1 || precision > 12 {
				return fmt.Errorf("geohash precision must be between 1 and 12, got %d", precision)
			}

			var res geohashResult
			if reverse {
				hash := strings.ToLower(args[0])
				if hash == "" {
					return fmt.Errorf("invalid geohash %q", args[0])
				}
				if err := geohash.Validate(hash); err != nil {
					return fmt.Errorf("invalid geohash %q: %w", args[0], err)
				}
				lat, lon := geohash.DecodeCenter(hash)
				code, err := grid9.Encode(lat, lon, false)
				if err != nil {
					return err
				}
				res = geohashResult{Code: code, Geohash: hash}
			} else {
				lat, lon, err := grid9.Decode(args[0])
				if err != nil {
					return err
				}
				res = geohashResult{
					Code:    grid9.RemoveFormatting(args[0]),
					Geohash: geohash.EncodeWithPrecision(lat, lon, precision),
				}
			}
			return a.out.print(res, func(w io.Writer) {
				stat(w, "grid9", res.Code)
				stat(w, "geohash", res.Geohash)
			})
		},
	}

	cmd.Flags().UintVarP(&precision, "precision", "p", 9, "Geohash length (1-12)")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "Treat the argument as a geohash")
	return cmd
}

func formatMeters(m float64) string {
	if m >= 1000 {
		return fmt.Sprintf("%.2f km", m/1000)
	}
	return fmt.Sprintf("%.2f m", m)
}

func parseCoordinate(s string) (models.Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return models.Coordinate{}, fmt.Errorf("invalid coordinate %q (want lat,lon)", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid coordinate %q (want lat,lon)", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid coordinate %q (want lat,lon)", s)
	}
	return models.Coordinate{Lat: lat, Lon: lon}, nil
}
