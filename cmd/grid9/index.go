package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/1F47E/grid9/internal/logging"
	"github.com/1F47E/grid9/pkg/index"
	"github.com/1F47E/grid9/pkg/models"
	"github.com/1F47E/grid9/pkg/postgis"
	"github.com/1F47E/grid9/pkg/spatial"
)

type buildResult struct {
	File     string        `json:"file" yaml:"file"`
	Entries  int64         `json:"entries" yaml:"entries"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
	PostGIS  bool          `json:"postgis" yaml:"postgis"`
	// rows in the PostGIS table after the upsert
	PostGISRows int64 `json:"postgis_rows,omitempty" yaml:"postgis_rows,omitempty"`
}

type bounds struct {
	minLat, maxLat, minLon, maxLon float64
}

func (a *app) indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and query an R-Tree index of grid9 codes",
	}
	cmd.AddCommand(a.indexBuildCmd(), a.indexQueryCmd())
	return cmd
}

func (a *app) indexBuildCmd() *cobra.Command {
	var (
		input      string
		file       string
		partitions int
		random     int
		seed       int64
		toPostGIS  bool
		b          bounds
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Index entries from a CSV file or random points and save the index",
		Long: `Reads "id,code" or "id,lat,lon" rows from --input (use - for stdin), or
generates --random points inside the given bounds, then saves the index to
--file. With --postgis the entries are also upserted into PostGIS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if file == "" {
				file = a.cfg.Index.File
			}
			if !cmd.Flags().Changed("partitions") {
				partitions = a.cfg.Index.Partitions
			}
			logger := logging.GetLoggerFromContext(a.ctx)
			defer logging.Time(a.ctx, "index build")(&err)

			var entries []models.Entry
			switch {
			case input != "" && random > 0:
				return errors.New("use either --input or --random, not both")
			case input == "-":
				entries, err = readEntries(cmd.InOrStdin())
			case input != "":
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				entries, err = readEntries(f)
				if err != nil {
					return err
				}
			case random > 0:
				entries, err = randomEntries(random, seed, b)
			default:
				return errors.New("nothing to index: pass --input or --random")
			}
			if err != nil {
				return err
			}

			logger.Info().Int("entries", len(entries)).Int("partitions", partitions).Msg("building index")
			start := time.Now()

			idx := index.NewCodeIndexWithPartitions(partitions)
			if err := idx.Insert(entries); err != nil {
				return fmt.Errorf("failed to index entries: %w", err)
			}
			if err := idx.SaveToFile(file); err != nil {
				return fmt.Errorf("failed to save index: %w", err)
			}
			elapsed := time.Since(start)

			res := buildResult{File: file, Entries: idx.Count(), Duration: elapsed, PostGIS: toPostGIS}
			if toPostGIS {
				if res.PostGISRows, err = a.pushToPostGIS(entries); err != nil {
					return err
				}
			}

			return a.out.print(res, func(w io.Writer) {
				line(w, okStyle.Render("✓ Index saved"))
				stat(w, "File", res.File)
				stat(w, "Entries", res.Entries)
				stat(w, "Build time", elapsed.Round(time.Millisecond))
				if elapsed > 0 {
					stat(w, "Entries per second", fmt.Sprintf("%.0f", float64(res.Entries)/elapsed.Seconds()))
				}
				if toPostGIS {
					stat(w, "PostGIS", a.cfg.PostGIS.Host)
					stat(w, "PostGIS rows", res.PostGISRows)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV file with id,code or id,lat,lon rows (- for stdin)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Index file (default from config)")
	cmd.Flags().IntVar(&partitions, "partitions", 0, "Number of longitude partitions (0 = one per CPU)")
	cmd.Flags().IntVarP(&random, "random", "n", 0, "Generate this many random points")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Random seed")
	cmd.Flags().Float64Var(&b.minLat, "min-lat", 25.0, "Minimum latitude for random points")
	cmd.Flags().Float64Var(&b.maxLat, "max-lat", 49.0, "Maximum latitude for random points")
	cmd.Flags().Float64Var(&b.minLon, "min-lon", -125.0, "Minimum longitude for random points")
	cmd.Flags().Float64Var(&b.maxLon, "max-lon", -66.0, "Maximum longitude for random points")
	cmd.Flags().BoolVar(&toPostGIS, "postgis", false, "Also upsert entries into PostGIS")
	return cmd
}

// pushToPostGIS upserts entries and returns the table's row count
func (a *app) pushToPostGIS(entries []models.Entry) (rows int64, err error) {
	defer logging.Time(a.ctx, "postgis bulk insert")(&err)

	store, err := postgis.NewStore(a.ctx, a.cfg.PostGIS)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	if err := store.InitSchema(a.ctx); err != nil {
		return 0, err
	}
	if err := store.BulkInsert(a.ctx, entries); err != nil {
		return 0, err
	}
	return store.Count(a.ctx)
}

// queryPostGIS runs a box query against the PostGIS table
func (a *app) queryPostGIS(box models.BoundingBox) (entries []models.Entry, total int64, err error) {
	defer logging.Time(a.ctx, "postgis box query")(&err)

	store, err := postgis.NewStore(a.ctx, a.cfg.PostGIS)
	if err != nil {
		return nil, 0, err
	}
	defer store.Close()

	if entries, err = store.QueryBox(a.ctx, box); err != nil {
		return nil, 0, err
	}
	if total, err = store.Count(a.ctx); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (a *app) indexQueryCmd() *cobra.Command {
	var (
		file    string
		lat     float64
		lon     float64
		radius  float64
		nearest     int
		box         string
		fromPostGIS bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a saved index by radius, nearest neighbors or box",
		Long: `Queries the index saved in --file. With --postgis the box query runs
against the PostGIS table filled by "index build --postgis" instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if file == "" {
				file = a.cfg.Index.File
			}
			defer logging.Time(a.ctx, "index query")(&err)

			if fromPostGIS {
				if box == "" {
					return errors.New("--postgis supports box queries only: pass --box")
				}
				b, err := parseBox(box)
				if err != nil {
					return err
				}
				entries, total, err := a.queryPostGIS(b)
				if err != nil {
					return err
				}
				return a.printEntries(entries, total)
			}

			idx := index.NewCodeIndexWithPartitions(a.cfg.Index.Partitions)
			if err := idx.LoadFromFile(file); err != nil {
				return err
			}

			center := models.Coordinate{Lat: lat, Lon: lon}
			var entries []models.Entry
			switch {
			case box != "":
				b, err := parseBox(box)
				if err != nil {
					return err
				}
				entries = idx.QueryBox(b)
			case nearest > 0:
				entries = idx.Nearest(center, nearest)
			default:
				entries, err = idx.QueryRadius(center, radius)
				if err != nil {
					return err
				}
			}
			return a.printEntries(entries, idx.Count())
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Index file (default from config)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the query point")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude of the query point")
	cmd.Flags().Float64VarP(&radius, "radius", "r", 1000, "Radius in meters")
	cmd.Flags().IntVarP(&nearest, "nearest", "k", 0, "Return the k nearest entries instead of a radius search")
	cmd.Flags().StringVar(&box, "box", "", "Box query as minLat,minLon,maxLat,maxLon")
	cmd.Flags().BoolVar(&fromPostGIS, "postgis", false, "Run the box query against PostGIS instead of the index file")
	return cmd
}

func (a *app) printEntries(entries []models.Entry, total int64) error {
	if entries == nil {
		entries = []models.Entry{}
	}
	return a.out.print(entries, func(w io.Writer) {
		for _, e := range entries {
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render(e.ID), valueStyle.Render(e.Code))
		}
		line(w, dimStyle.Render(fmt.Sprintf("%d of %d entries", len(entries), total)))
	})
}

// readEntries parses "id,code" or "id,lat,lon" CSV rows
func readEntries(r io.Reader) ([]models.Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var entries []models.Entry
	var coords []models.Coordinate
	var coordIdx []int
	for row := 1; ; row++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		switch len(rec) {
		case 2:
			entries = append(entries, models.Entry{ID: rec[0], Code: strings.TrimSpace(rec[1])})
		case 3:
			c, err := parseCoordinate(rec[1] + "," + rec[2])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			coordIdx = append(coordIdx, len(entries))
			coords = append(coords, c)
			entries = append(entries, models.Entry{ID: rec[0]})
		default:
			return nil, fmt.Errorf("row %d: want 2 or 3 fields, got %d", row, len(rec))
		}
	}

	codes, err := spatial.BatchEncode(coords, false)
	if err != nil {
		return nil, err
	}
	for i, idx := range coordIdx {
		entries[idx].Code = codes[i]
	}
	return entries, nil
}

// randomEntries generates n coded points inside b, one generator per worker
func randomEntries(n int, seed int64, b bounds) ([]models.Entry, error) {
	coords := make([]models.Coordinate, n)

	numWorkers := runtime.NumCPU()
	batchSize := (n + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * batchSize
		end := min(start+batchSize, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed + int64(start)))
			for i := start; i < end; i++ {
				coords[i] = models.Coordinate{
					Lat: b.minLat + r.Float64()*(b.maxLat-b.minLat),
					Lon: b.minLon + r.Float64()*(b.maxLon-b.minLon),
				}
			}
		}(start, end)
	}
	wg.Wait()

	codes, err := spatial.BatchEncode(coords, false)
	if err != nil {
		return nil, err
	}

	entries := make([]models.Entry, n)
	for i, code := range codes {
		entries[i] = models.Entry{ID: "point_" + strconv.Itoa(i), Code: code}
	}
	return entries, nil
}

func parseBox(s string) (models.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return models.BoundingBox{}, fmt.Errorf("invalid box %q (want minLat,minLon,maxLat,maxLon)", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.BoundingBox{}, fmt.Errorf("invalid box %q (want minLat,minLon,maxLat,maxLon)", s)
		}
		v[i] = f
	}
	return models.BoundingBox{MinLat: v[0], MinLon: v[1], MaxLat: v[2], MaxLon: v[3]}, nil
}
