// Command guest runs the SOCKS5 front end: it accepts local TCP clients
// and multiplexes them over one transport handle to a host peer.
package main

import (
	"flag"
	"log"

	"github.com/paulGUZU/vsak/internal/guestproxy"
	"github.com/paulGUZU/vsak/internal/tunnel"
	"github.com/paulGUZU/vsak/pkg/banner"
	"github.com/paulGUZU/vsak/pkg/config"
	"github.com/paulGUZU/vsak/pkg/endpoint"
	"github.com/paulGUZU/vsak/pkg/slot"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	listenAddr := flag.String("listen", "", "override the SOCKS5 listen address")
	endpointPath := flag.String("endpoint", "", "override the transport endpoint path")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
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

	srv := guestproxy.NewServer(cfg.ListenAddr, tun, table, cfg.FrameCap)

	banner.Print("GUEST")
	banner.PrintGuestStatus(cfg.ListenAddr, cfg.Endpoint, cfg.MaxSlots)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("guest proxy failed: %v", err)
	}
}
