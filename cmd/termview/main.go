package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/miretskiy/billiards/simulator"
)

type viewer struct {
	screen tcell.Screen
	sim    *simulator.Simulator
	radii  []float64
	paused bool
	deltaT float64
}

func newViewer(s tcell.Screen, sim *simulator.Simulator, deltaT float64) *viewer {
	radii := sim.Config().Radii
	slices.Sort(radii)
	return &viewer{screen: s, sim: sim, radii: radii, deltaT: deltaT}
}

// handleKey reports false when the viewer should exit
func (v *viewer) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return false
		case ' ':
			v.paused = !v.paused
		case 'r', 'R':
			if err := v.sim.Reset(); err != nil {
				return false
			}
		}
	}
	return true
}

func (v *viewer) tick() {
	if !v.paused {
		v.sim.Step(v.deltaT)
	}
	render(v.screen, v.sim.Snapshot(), v.sim.Metrics(), v.radii, v.paused)
	v.screen.Show()
}

func (v *viewer) run(interval time.Duration) {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()
	defer close(quit)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	v.tick()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.screen.Sync()
			case *tcell.EventKey:
				if !v.handleKey(ev) {
					return
				}
			}
		case <-ticker.C:
			v.tick()
		}
	}
}

func main() {
	configFile := flag.String("config", "", "Path to JSON or YAML configuration file (defaults if not specified)")
	fps := flag.Int("fps", 30, "Frames per second")
	deltaT := flag.Float64("dt", 0.5, "Virtual time advanced per frame")
	flag.Parse()

	config := simulator.DefaultConfig()
	if *configFile != "" {
		var err error
		config, err = simulator.LoadConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *fps <= 0 || *deltaT <= 0 {
		fmt.Fprintf(os.Stderr, "-fps and -dt must be positive\n")
		os.Exit(1)
	}

	sim, err := simulator.NewSimulator(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating simulator: %v\n", err)
		os.Exit(1)
	}

	s, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := s.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize screen: %v\n", err)
		os.Exit(1)
	}
	s.SetStyle(styleDefault)
	// Log lines would corrupt the screen
	sim.LogOutput = io.Discard

	newViewer(s, sim, *deltaT).run(time.Second / time.Duration(*fps))
	s.Fini()

	m := sim.Metrics()
	fmt.Printf("Stopped at t=%.3f after %d pair collisions and %d wall hits\n",
		m.Timestamp, m.PairCollisions, m.WallCollisions)
}
