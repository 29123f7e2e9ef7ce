package banner

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"sealchat/pkg/config"
	"sealchat/pkg/store"
)

const banner = `
███████╗███████╗ █████╗ ██╗      ██████╗██╗  ██╗ █████╗ ████████╗
██╔════╝██╔════╝██╔══██╗██║     ██╔════╝██║  ██║██╔══██╗╚══██╔══╝
███████╗█████╗  ███████║██║     ██║     ███████║███████║   ██║
╚════██║██╔══╝  ██╔══██║██║     ██║     ██╔══██║██╔══██║   ██║
███████║███████╗██║  ██║███████╗╚██████╗██║  ██║██║  ██║   ██║
╚══════╝╚══════╝╚═╝  ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`

// Print writes the startup banner with the effective runtime settings and
// a readiness checklist for production deployments.
func Print(eff config.Effective, version string) {
	addr := eff.Addr
	if addr == "" {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)
	if store.Ready() {
		fmt.Printf("DB Size:  %s\n", humanize.Bytes(store.DiskSize()))
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/messages/send       - Send an encrypted message")
	fmt.Println("GET  /v1/chats/{id}/messages - List a conversation")
	fmt.Println("GET  /v1/ws?channels=...     - Realtime event stream")

	fmt.Println("\n== Production? ================================================")
	be := len(eff.Config.Security.APIKeys.Backend)
	fe := len(eff.Config.Security.APIKeys.Frontend)
	ak := len(eff.Config.Security.APIKeys.Admin)
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}

	if eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if eff.Config.Security.JWT.Secret != "" {
		fmt.Println("- JWT: configured")
	} else {
		fmt.Println("- JWT: unconfigured (HMAC signatures only)")
	}

	if eff.Config.Sweeper.Enabled {
		cron := eff.Config.Sweeper.Cron
		if cron == "" {
			cron = "default"
		}
		fmt.Printf("- Silence sweeper: enabled (cron=%s)\n", cron)
	} else {
		fmt.Println("- Silence sweeper: disabled (expired records pruned lazily)")
	}

	fmt.Println("\n== Logs: ======================================================")
}
