package main

import (
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1F47E/grid9/pkg/grid9"
	"github.com/1F47E/grid9/pkg/index"
	"github.com/1F47E/grid9/pkg/models"
	"github.com/1F47E/grid9/pkg/spatial"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF79C6")).
			Background(lipgloss.Color("#282A36")).
			Padding(0, 1).
			MarginTop(1).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50FA7B"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F1FA8C"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#BD93F9")).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)

	statStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))
)

// benchmark is one stage of the demo. run reports progress in [0, 1]
// through report and returns the number of operations and results.
type benchmark struct {
	name string
	desc string
	run  func(report func(float64)) (ops, results int64, err error)
}

type benchmarkResult struct {
	name      string
	ops       int64
	results   int64
	totalTime time.Duration
	avgOpTime time.Duration
	opsPerSec float64
	err       error
}

type model struct {
	stages          []benchmark
	current         int
	done            bool
	spinner         spinner.Model
	progress        progress.Model
	progressPercent float64
	results         []benchmarkResult
	messages        []string
	width           int
}

type progressMsg float64
type stageCompleteMsg benchmarkResult
type messageMsg string
type doneMsg struct{}

func initialModel(stages []benchmark) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{
		stages:   stages,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		width:    80,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-10, 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		m.progressPercent = float64(msg)
		return m, m.progress.SetPercent(float64(msg))

	case messageMsg:
		m.messages = append(m.messages, string(msg))
		if len(m.messages) > 5 {
			m.messages = m.messages[1:]
		}
		return m, nil

	case stageCompleteMsg:
		m.results = append(m.results, benchmarkResult(msg))
		m.current++
		m.progressPercent = 0
		return m, nil

	case doneMsg:
		m.done = true
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("🌍 Grid9 Codec Benchmark"))
	b.WriteString("\n")

	for _, r := range m.results {
		b.WriteString(renderResult(r))
		b.WriteString("\n")
	}

	if m.done {
		b.WriteString(renderSummary(m.results))
	} else if m.current < len(m.stages) {
		stage := m.stages[m.current]
		b.WriteString(subtitleStyle.Render(stage.name))
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View() + " " + stage.desc + "\n\n")
		b.WriteString(m.progress.ViewAs(m.progressPercent))
	}

	if len(m.messages) > 0 {
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("Recent activity:"))
		b.WriteString("\n")
		for _, msg := range m.messages {
			b.WriteString(dimStyle.Render("• " + msg))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Press 'q' to quit"))

	return b.String()
}

func renderResult(r benchmarkResult) string {
	if r.err != nil {
		return errorStyle.Render(fmt.Sprintf("✗ %s failed: %v", r.name, r.err))
	}
	return successStyle.Render("✓ "+r.name) + dimStyle.Render(fmt.Sprintf(
		"  %s ops in %s, %s ops/sec, %s avg, %s results",
		statStyle.Render(fmt.Sprintf("%d", r.ops)),
		statStyle.Render(r.totalTime.Round(time.Millisecond).String()),
		statStyle.Render(fmt.Sprintf("%.0f", r.opsPerSec)),
		statStyle.Render(r.avgOpTime.String()),
		statStyle.Render(fmt.Sprintf("%d", r.results)),
	))
}

func renderSummary(results []benchmarkResult) string {
	var content strings.Builder
	content.WriteString(infoStyle.Render("Performance Summary:\n\n"))
	content.WriteString(fmt.Sprintf("CPU cores: %s\n", statStyle.Render(fmt.Sprintf("%d", runtime.NumCPU()))))
	for _, r := range results {
		if r.err != nil {
			continue
		}
		content.WriteString(fmt.Sprintf("%s: %s\n", r.name, statStyle.Render(fmt.Sprintf("%.0f ops/sec", r.opsPerSec))))
	}
	return boxStyle.Render(strings.TrimRight(content.String(), "\n"))
}

func measure(b benchmark, report func(float64)) benchmarkResult {
	start := time.Now()
	ops, results, err := b.run(report)
	elapsed := time.Since(start)

	r := benchmarkResult{name: b.name, ops: ops, results: results, totalTime: elapsed, err: err}
	if ops > 0 {
		r.avgOpTime = elapsed / time.Duration(ops)
		r.opsPerSec = float64(ops) / elapsed.Seconds()
	}
	return r
}

// parallel splits n iterations over one goroutine per CPU and reports
// progress every 1% of completed work
func parallel(n int, report func(float64), fn func(i int) int64) int64 {
	numWorkers := runtime.NumCPU()
	perWorker := (n + numWorkers - 1) / numWorkers
	step := int64(max(n/100, 1))

	var done, total atomic.Int64
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		start := w * perWorker
		end := min(start+perWorker, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			var local int64
			for i := start; i < end; i++ {
				local += fn(i)
				if d := done.Add(1); d%step == 0 {
					report(float64(d) / float64(n))
				}
			}
			total.Add(local)
		}(start, end)
	}
	wg.Wait()
	report(1)
	return total.Load()
}

func randomCoordinates(n int, seed int64) []models.Coordinate {
	r := rand.New(rand.NewSource(seed))
	coords := make([]models.Coordinate, n)
	for i := range coords {
		switch r.Intn(4) {
		case 0: // North America
			coords[i] = models.Coordinate{Lat: r.Float64()*30 + 30, Lon: r.Float64()*60 - 120}
		case 1: // Europe
			coords[i] = models.Coordinate{Lat: r.Float64()*20 + 40, Lon: r.Float64()*40 - 10}
		case 2: // Asia
			coords[i] = models.Coordinate{Lat: r.Float64()*40 + 20, Lon: r.Float64()*80 + 60}
		default:
			coords[i] = models.Coordinate{Lat: r.Float64()*180 - 90, Lon: r.Float64()*360 - 180}
		}
	}
	return coords
}

// stages builds the benchmark pipeline over n random points
func stages(n, queries int) []benchmark {
	coords := randomCoordinates(n, 1)
	codes := make([]string, n)
	idx := index.NewCodeIndex()

	return []benchmark{
		{
			name: "Encode",
			desc: fmt.Sprintf("Encoding %d coordinates one by one...", n),
			run: func(report func(float64)) (int64, int64, error) {
				var failed atomic.Int64
				parallel(n, report, func(i int) int64 {
					code, err := grid9.Encode(coords[i].Lat, coords[i].Lon, false)
					if err != nil {
						failed.Add(1)
						return 0
					}
					codes[i] = code
					return 1
				})
				if f := failed.Load(); f > 0 {
					return int64(n), 0, fmt.Errorf("%d coordinates failed to encode", f)
				}
				return int64(n), int64(n), nil
			},
		},
		{
			name: "Decode",
			desc: fmt.Sprintf("Decoding %d codes...", n),
			run: func(report func(float64)) (int64, int64, error) {
				ok := parallel(n, report, func(i int) int64 {
					if _, _, err := grid9.Decode(codes[i]); err != nil {
						return 0
					}
					return 1
				})
				return int64(n), ok, nil
			},
		},
		{
			name: "Batch encode",
			desc: fmt.Sprintf("Batch encoding %d coordinates...", n),
			run: func(report func(float64)) (int64, int64, error) {
				report(0)
				out, err := spatial.BatchEncode(coords, false)
				report(1)
				return int64(n), int64(len(out)), err
			},
		},
		{
			name: "Index build",
			desc: fmt.Sprintf("Indexing %d codes in the R-Tree...", n),
			run: func(report func(float64)) (int64, int64, error) {
				entries := make([]models.Entry, n)
				for i, code := range codes {
					entries[i] = models.Entry{ID: fmt.Sprintf("point_%d", i), Code: code}
				}
				report(0.5)
				err := idx.Insert(entries)
				report(1)
				return int64(n), idx.Count(), err
			},
		},
		{
			name: "Index radius",
			desc: fmt.Sprintf("Running %d 50km radius queries...", queries),
			run: func(report func(float64)) (int64, int64, error) {
				centers := randomCoordinates(queries, 2)
				found := parallel(queries, report, func(i int) int64 {
					res, err := idx.QueryRadius(centers[i], 50_000)
					if err != nil {
						return 0
					}
					return int64(len(res))
				})
				return int64(queries), found, nil
			},
		},
		{
			name: "Find nearby",
			desc: fmt.Sprintf("Scanning %d neighborhoods of 30m...", queries/10),
			run: func(report func(float64)) (int64, int64, error) {
				centers := randomCoordinates(queries/10, 3)
				found := parallel(len(centers), report, func(i int) int64 {
					// the scan box stops at 80 degrees
					lat := max(min(centers[i].Lat, 79), -79)
					res, err := spatial.FindNearby(lat, centers[i].Lon, 30, 100)
					if err != nil {
						return 0
					}
					return int64(len(res))
				})
				return int64(len(centers)), found, nil
			},
		},
	}
}

func execute(program *tea.Program, pipeline []benchmark) {
	for _, b := range pipeline {
		r := measure(b, func(p float64) { program.Send(progressMsg(p)) })
		if r.err != nil {
			program.Send(messageMsg(fmt.Sprintf("%s: %v", b.name, r.err)))
		}
		program.Send(stageCompleteMsg(r))
	}
	program.Send(doneMsg{})
}

func main() {
	pipeline := stages(1_000_000, 1000)
	program := tea.NewProgram(initialModel(pipeline))

	go execute(program, pipeline)

	if _, err := program.Run(); err != nil {
		log.Fatal(err)
	}
}
