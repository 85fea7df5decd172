package banner

import (
	"fmt"

	"threaddb/pkg/config"
)

const banner = `
████████╗██╗  ██╗██████╗ ███████╗ █████╗ ██████╗ ██████╗ ██████╗
╚══██╔══╝██║  ██║██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔══██╗██╔══██╗
   ██║   ███████║██████╔╝█████╗  ███████║██║  ██║██║  ██║██████╔╝
   ██║   ██╔══██║██╔══██╗██╔══╝  ██╔══██║██║  ██║██║  ██║██╔══██╗
   ██║   ██║  ██║██║  ██║███████╗██║  ██║██████╔╝██████╔╝██████╔╝
   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═════╝ ╚═════╝ ╚═════╝
`

// Print writes the startup summary: where we listen, where data lives, which
// config sources applied and a few production checks.
func Print(cfg *config.Config, addr, dbPath, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("Data:     %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/threads                     - Create a contact or group thread")
	fmt.Println("GET  /v1/threads                     - List threads (conversation order)")
	fmt.Println("POST /v1/threads/{id}/handshake      - Apply a friend-request event")
	fmt.Println("POST /v1/handshake/inbound           - Record an inbound friend request")
	fmt.Println("POST /v1/threads/{id}/messages       - Record an interaction")
	fmt.Println("GET  /docs/                          - API documentation")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/threads' -d '{\"kind\":\"contact\",\"contact\":\"alice@id\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/threads'\n", addr)
	fmt.Println("\n== Production? ================================================")
	if cfg != nil {
		if n := len(cfg.Security.APIKeys.Keys); n > 0 {
			fmt.Printf("- API keys: OK (%d)\n", n)
		} else if cfg.Security.APIKeys.AllowUnauth {
			fmt.Println("- API keys: NONE (allow_unauth set; development only)")
		} else {
			fmt.Println("- API keys: MISSING (set security.api_keys.keys)")
		}
		if cfg.Expiry.Enabled {
			fmt.Printf("- Expiry sweeps: ON (request_ttl %s)\n", cfg.RequestTTL())
		} else {
			fmt.Println("- Expiry sweeps: OFF (sent requests never time out)")
		}
	}
	fmt.Println("- Set a durable data directory (--db)")
}
