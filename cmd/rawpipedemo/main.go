// Command rawpipedemo runs a rawpipe graph loaded from a config file
// (§6.2) to completion and reports per-node timestamp deltas.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/gogpu/rawpipe/backend/mock"
	"github.com/gogpu/rawpipe/backend/wgpu"
	"github.com/gogpu/rawpipe/internal/gpu"
	"github.com/gogpu/rawpipe/pipe"

	_ "github.com/gogpu/rawpipe/pipe/modules/demosaic"
	_ "github.com/gogpu/rawpipe/pipe/modules/exposure"
	_ "github.com/gogpu/rawpipe/pipe/modules/sink"
	_ "github.com/gogpu/rawpipe/pipe/modules/source"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a rawpipe .cfg file (required)")
		backend    = flag.String("backend", "mock", "device backend: mock or wgpu")
	)
	flag.Parse()

	if *configPath == "" {
		log.Fatal("rawpipedemo: -config is required")
	}

	device, closeDevice, err := openDevice(*backend)
	if err != nil {
		log.Fatalf("rawpipedemo: %v", err)
	}
	defer closeDevice()

	f, err := os.Open(*configPath)
	if err != nil {
		log.Fatalf("rawpipedemo: %v", err)
	}
	defer f.Close()

	graph := pipe.NewGraph(nil, device, nil)
	defer graph.Teardown()

	if err := pipe.LoadConfig(graph, f); err != nil {
		log.Fatalf("rawpipedemo: load config: %v", err)
	}

	result, err := graph.Run(pipe.FlagAll)
	if err != nil {
		log.Fatalf("rawpipedemo: run: %v", err)
	}

	log.Printf("rawpipedemo: ran %d nodes, first dirty module %d", len(graph.Nodes), result.FirstDirty)
	for i, delta := range result.TimestampDeltas {
		log.Printf("rawpipedemo: node %d: %d ticks", i, delta)
	}
}

func openDevice(backend string) (device gpu.Device, closeFn func(), err error) {
	switch backend {
	case "mock":
		return mock.New(), func() {}, nil
	case "wgpu":
		d := wgpu.New()
		if err := d.Init(); err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	default:
		log.Fatalf("rawpipedemo: unknown backend %q (want mock or wgpu)", backend)
		return nil, nil, nil
	}
}
