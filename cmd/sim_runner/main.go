package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/miretskiy/billiards/simulator"
)

func main() {
	// Parse command line flags
	configFile := flag.String("config", "", "Path to JSON or YAML configuration file (defaults if not specified)")
	duration := flag.Float64("duration", 1000, "Simulation duration in virtual time units")
	maxEvents := flag.Int("events", 0, "Stop after this many collisions instead of a fixed duration (0 = use -duration)")
	tick := flag.Float64("tick", 1.0, "Virtual time advanced per Step when running for a duration")
	horizon := flag.Float64("horizon", 1e4, "With -events, stop if no collision happens within this much virtual time (0 = wait forever)")
	seed := flag.Int64("seed", 0, "Override randomSeed from the config (0 = keep)")
	outputFile := flag.String("output", "", "Path to output JSON file (optional, prints to stdout if not specified)")
	withSnapshot := flag.Bool("snapshot", false, "Include final particle positions in the output")
	verbose := flag.Bool("verbose", false, "Enable verbose logging from simulator")
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
	if *seed != 0 {
		config.RandomSeed = *seed
	}
	if *tick <= 0 {
		fmt.Fprintf(os.Stderr, "Invalid -tick %g: must be > 0\n", *tick)
		os.Exit(1)
	}
	if *horizon < 0 {
		fmt.Fprintf(os.Stderr, "Invalid -horizon %g: must be >= 0\n", *horizon)
		os.Exit(1)
	}
	if *horizon == 0 {
		fmt.Fprintf(os.Stderr, "Warning: -horizon 0 never gives up; a box with no collisions left will run forever\n")
	}

	sim, err := simulator.NewSimulator(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating simulator: %v\n", err)
		os.Exit(1)
	}
	if *verbose {
		sim.LogEvent = func(msg string) {
			fmt.Fprintf(os.Stderr, "[SIM] %s\n", msg)
		}
		fmt.Fprintf(os.Stderr, "Verbose logging enabled\n")
	}

	startTime := time.Now()
	if *maxEvents > 0 {
		fmt.Fprintf(os.Stderr, "Starting simulation for %d collisions (%d particles)...\n", *maxEvents, sim.NumParticles())
		now := 0.0
		for n := 0; n < *maxEvents; n++ {
			limit := math.Inf(1)
			if *horizon > 0 {
				limit = now + *horizon
			}
			next, ok := sim.UpdateWithin(now, limit)
			if math.IsInf(next, 1) {
				fmt.Fprintf(os.Stderr, "No further events after %d collisions\n", n)
				break
			}
			if !ok {
				fmt.Fprintf(os.Stderr, "Warning: no collision within %g time units of t=%.3f; stopping after %d collisions\n",
					*horizon, now, n)
				break
			}
			now = next
			if *verbose && n%10000 == 0 {
				fmt.Fprintf(os.Stderr, "[SIM] %d collisions, t=%.3f, queue=%d\n", n, now, sim.QueueLen())
			}
		}
	} else {
		fmt.Fprintf(os.Stderr, "Starting simulation for %.1f virtual time units (%d particles)...\n", *duration, sim.NumParticles())
		for sim.VirtualTime() < *duration {
			sim.Step(math.Min(*tick, *duration-sim.VirtualTime()))
		}
	}

	elapsed := time.Since(startTime)
	fmt.Fprintf(os.Stderr, "Simulation completed in %v (%.3f virtual time)\n", elapsed, sim.VirtualTime())

	results := map[string]interface{}{
		"config":      config,
		"virtualTime": sim.VirtualTime(),
		"realTime":    elapsed.Seconds(),
		"metrics":     sim.Metrics(),
	}
	if *withSnapshot {
		results["snapshot"] = sim.Snapshot()
	}

	output, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling results: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Results written to %s\n", *outputFile)
	} else {
		fmt.Println(string(output))
	}
}
