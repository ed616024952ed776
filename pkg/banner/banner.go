package banner

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

func Print(role string) {
	art := `
██╗   ██╗███████╗ ██████╗ ██╗  ██╗
██║   ██║██╔════╝██╔═══██╗██║ ██╔╝
██║   ██║███████╗██║   ██║█████╔╝
╚██╗ ██╔╝╚════██║██║   ██║██╔═██╗
 ╚████╔╝ ███████║╚██████╔╝██║  ██╗
  ╚═══╝  ╚══════╝ ╚═════╝ ╚═╝  ╚═╝
`
	c := color.New(color.FgCyan, color.Bold)
	c.Println(art)

	fmt.Printf("   %s :: SOCKS5-over-virtio tunnel\n", role)
	fmt.Printf("   Start Time: %s\n", time.Now().Format(time.RFC1123))
	fmt.Println(strings.Repeat("-", 50))
}

func PrintGuestStatus(listenAddr, endpoint string, maxSlots int) {
	color.Green("✓ Guest proxy started")
	fmt.Printf("   • Mode:        Guest (SOCKS5 front end)\n")
	fmt.Printf("   • Listening:   %s (SOCKS5)\n", listenAddr)
	fmt.Printf("   • Endpoint:    %s\n", endpoint)
	fmt.Printf("   • Max slots:   %d\n", maxSlots)
	fmt.Println(strings.Repeat("-", 50))
}

func PrintHostStatus(endpoint string, maxSlots int) {
	color.Green("✓ Host proxy started")
	fmt.Printf("   • Mode:        Host (egress side)\n")
	fmt.Printf("   • Endpoint:    %s\n", endpoint)
	fmt.Printf("   • Max slots:   %d\n", maxSlots)
	fmt.Println(strings.Repeat("-", 50))
}
