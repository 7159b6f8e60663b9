// Command conduct2d runs the distributed 2D heat-conduction solver:
// it reads a YAML settings file, decomposes the mesh across workers,
// and marches the coupled conduction/reaction state forward in time,
// saving .npy snapshots to the output directory.
package main

import (
	"flag"
	"log"

	"github.com/jmreppsUWGrad/2D-Research/config"
	"github.com/jmreppsUWGrad/2D-Research/sim"
	"github.com/jmreppsUWGrad/2D-Research/snapshot"
)

func main() {
	cfgPath := flag.String("config", "", "path to the YAML settings file")
	outDir := flag.String("out", "output", "directory for snapshot output")
	flag.Parse()

	if *cfgPath == "" {
		log.Fatal("usage: conduct2d -config <settings.yaml> [-out <dir>]")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	store, err := snapshot.NewStore(*outDir)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Initializing %dx%d mesh across %d workers", cfg.NodesX, cfg.NodesY, cfg.Workers)
	engine, err := sim.New(sim.Params{Config: cfg, Store: store})
	if err != nil {
		log.Fatal(err)
	}

	log.Print("Solving:")
	if _, err := engine.Run(); err != nil {
		log.Fatal(err)
	}
	log.Print("Solver has finished its run")
}
