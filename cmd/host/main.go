// Command host runs the egress side: it demultiplexes frames off the
// transport handle and opens ordinary TCP connections to their targets.
package main

import (
	"flag"
	"log"

	"github.com/paulGUZU/vsak/internal/hostproxy"
	"github.com/paulGUZU/vsak/internal/tunnel"
	"github.com/paulGUZU/vsak/pkg/banner"
	"github.com/paulGUZU/vsak/pkg/config"
	"github.com/paulGUZU/vsak/pkg/endpoint"
	"github.com/paulGUZU/vsak/pkg/slot"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	endpointPath := flag.String("endpoint", "", "override the transport endpoint path")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *endpointPath != "" {
		cfg.Endpoint = *endpointPath
	}

	rw, err := endpoint.Open(cfg.Endpoint)
	if err != nil {
		log.Fatalf("failed to open transport endpoint: %v", err)
	}

	tun := tunnel.New(rw, uint16(cfg.MaxSlots))
	table := slot.NewTable(cfg.MaxSlots)
	handler := hostproxy.NewHandler(tun, table, cfg.FrameCap)

	banner.Print("HOST")
	banner.PrintHostStatus(cfg.Endpoint, cfg.MaxSlots)

	if err := handler.Run(); err != nil {
		log.Fatalf("host proxy failed: %v", err)
	}
}
