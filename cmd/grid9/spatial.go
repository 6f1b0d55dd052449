package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/1F47E/grid9/pkg/models"
	"github.com/1F47E/grid9/pkg/spatial"
)

type groupResult struct {
	Code        string              `json:"code" yaml:"code"`
	Coordinates []models.Coordinate `json:"coordinates" yaml:"coordinates"`
}

func (a *app) nearbyCmd() *cobra.Command {
	var lat, lon, radius float64
	var limit uint

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List codes whose cells lie within a radius of a point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("radius") {
				radius = a.cfg.Nearby.DefaultRadiusM
			}
			if !cmd.Flags().Changed("max") {
				limit = a.cfg.Nearby.DefaultMaxResults
			}

			codes, err := spatial.FindNearby(lat, lon, radius, limit)
			if err != nil {
				return err
			}
			if codes == nil {
				codes = []string{}
			}
			return a.out.print(codes, func(w io.Writer) {
				for _, c := range codes {
					line(w, c)
				}
				line(w, dimStyle.Render(fmt.Sprintf("%d codes within %s", len(codes), formatMeters(radius))))
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in degrees")
	cmd.Flags().Float64VarP(&radius, "radius", "r", 100, "Search radius in meters")
	cmd.Flags().UintVarP(&limit, "max", "n", 50, "Maximum number of codes")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

func (a *app) bboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bbox [lat,lon]...",
		Short: "Bounding box of coordinates given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := readCoordinates(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			box, err := spatial.BoundingBox(coords)
			if err != nil {
				return err
			}
			return a.out.print(box, func(w io.Writer) {
				stat(w, "Min", fmt.Sprintf("%.6f, %.6f", box.MinLat, box.MinLon))
				stat(w, "Max", fmt.Sprintf("%.6f, %.6f", box.MaxLat, box.MaxLon))
			})
		},
	}
}

func (a *app) centerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "center [lat,lon]...",
		Short: "Arithmetic mean of coordinates given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := readCoordinates(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			c, err := spatial.CenterPoint(coords)
			if err != nil {
				return err
			}
			return a.out.print(c, func(w io.Writer) {
				stat(w, "Center", fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lon))
			})
		},
	}
}

func (a *app) groupCmd() *cobra.Command {
	var human bool

	cmd := &cobra.Command{
		Use:   "group [lat,lon]...",
		Short: "Group coordinates by the code of their cell",
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := readCoordinates(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			groups, err := spatial.GroupByCode(coords, human)
			if err != nil {
				return err
			}

			results := make([]groupResult, 0, len(groups))
			for code, members := range groups {
				results = append(results, groupResult{Code: code, Coordinates: members})
			}
			sort.Slice(results, func(i, j int) bool {
				return results[i].Code < results[j].Code
			})

			return a.out.print(results, func(w io.Writer) {
				for _, g := range results {
					fmt.Fprintf(w, "%s %s\n", labelStyle.Render(g.Code), valueStyle.Render(fmt.Sprintf("(%d)", len(g.Coordinates))))
					for _, c := range g.Coordinates {
						line(w, dimStyle.Render(fmt.Sprintf("  %.6f, %.6f", c.Lat, c.Lon)))
					}
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&human, "human", "H", false, "Format codes as XXX-XXX-XXX")
	return cmd
}

// readCoordinates parses lat,lon pairs from args, or from r one per line
// when no args are given. Blank lines and lines starting with # are skipped.
func readCoordinates(r io.Reader, args []string) ([]models.Coordinate, error) {
	var coords []models.Coordinate
	if len(args) > 0 {
		for _, arg := range args {
			c, err := parseCoordinate(arg)
			if err != nil {
				return nil, err
			}
			coords = append(coords, c)
		}
		return coords, nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		c, err := parseCoordinate(text)
		if err != nil {
			return nil, err
		}
		coords = append(coords, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read coordinates: %w", err)
	}
	return coords, nil
}
