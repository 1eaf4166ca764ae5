// Aether Collab — CLI entry point.
//
// This tool runs the collaborative-editing session core of the Aether
// editor: it hosts or joins a two-party session over a direct TCP
// connection, with turn-based editing control. A GUI surface attaches over
// the local WebSocket bridge (-bridge); without one, a line-oriented console
// surface is used.
//
// It can be launched interactively (no flags) or non-interactively via CLI
// flags (-role, -host, -port, -name, -bridge, -config).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/aether-editor/collab/internal/bridge"
	"github.com/aether-editor/collab/internal/config"
	"github.com/aether-editor/collab/internal/session"
	"github.com/aether-editor/collab/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	role := flag.String("role", "", "Role: host or client")
	host := flag.String("host", "", "Address to bind (host) or connect to (client)")
	port := flag.Int("port", 0, "Session port, 1~65535")
	name := flag.String("name", "", "Display name announced to the peer")
	bridgeAddr := flag.String("bridge", "", "Local address for the editor surface bridge (e.g. 127.0.0.1:0)")
	configPath := flag.String("config", "", "Path to a TOML config file")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *name != "" {
		cfg.DisplayName = *name
	}
	if *bridgeAddr != "" {
		cfg.BridgeAddr = *bridgeAddr
	}
	if *debugMode || cfg.Debug {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Aether Collab — v%s", version))
	pterm.Println()

	switch *role {
	case "":
		// No -role flag → interactive mode.
		runInteractive(ctx, cfg)

	case "host":
		if *port < 1 || *port > 65535 {
			pterm.Error.Println("invalid or missing -port (must be 1~65535)")
			os.Exit(1)
		}
		bind := cfg.ListenHost
		if *host != "" {
			bind = *host
		}
		runHost(ctx, cfg, bind, *port)

	case "client":
		if *port < 1 || *port > 65535 {
			pterm.Error.Println("invalid or missing -port (must be 1~65535)")
			os.Exit(1)
		}
		if *host == "" {
			pterm.Error.Println("missing -host for client role")
			os.Exit(1)
		}
		runClient(ctx, cfg, *host, *port)

	default:
		pterm.Error.Println("invalid -role: must be 'host' or 'client'")
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// runInteractive falls back to interactive prompts when no -role flag is
// provided.
func runInteractive(ctx context.Context, cfg config.Config) {
	role, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Host   — Share your buffer and start with control", "Client — Join a host in view-only state"}).
		WithDefaultText("Select your role").
		Show()

	pterm.Println()

	if strings.HasPrefix(role, "Host") {
		port := askPort("Port to host on (1 ~ 65535)")
		runHost(ctx, cfg, cfg.ListenHost, port)
	} else {
		host := askHost()
		port := askPort("Host port (1 ~ 65535)")
		runClient(ctx, cfg, host, port)
	}
}

// runHost waits for one peer, then runs the session with control held.
func runHost(ctx context.Context, cfg config.Config, bind string, port int) {
	opts := session.Options{DisplayName: cfg.DisplayName, DialTimeout: cfg.DialTimeout()}

	if cfg.BridgeAddr != "" {
		runBridged(ctx, cfg, func(surface session.Surface) (*session.Session, error) {
			pterm.Info.Println(fmt.Sprintf("Waiting for a peer on %s:%d ...", bind, port))
			return session.Host(ctx, bind, port, opts, surface)
		})
		return
	}

	surface := newConsoleSurface()
	pterm.Info.Println(fmt.Sprintf("Waiting for a peer on %s:%d ...", bind, port))
	sess, err := session.Host(ctx, bind, port, opts, surface)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	util.StartStatsReporter(ctx)
	pterm.Success.Println("Peer connected — you hold editing control")
	repl(ctx, sess, surface)
}

// runClient joins a hosting peer in view-only state.
func runClient(ctx context.Context, cfg config.Config, host string, port int) {
	opts := session.Options{DisplayName: cfg.DisplayName, DialTimeout: cfg.DialTimeout()}

	if cfg.BridgeAddr != "" {
		runBridged(ctx, cfg, func(surface session.Surface) (*session.Session, error) {
			pterm.Info.Println(fmt.Sprintf("Connecting to %s:%d ...", host, port))
			return session.Connect(ctx, host, port, opts, surface)
		})
		return
	}

	surface := newConsoleSurface()
	pterm.Info.Println(fmt.Sprintf("Connecting to %s:%d ...", host, port))
	sess, err := session.Connect(ctx, host, port, opts, surface)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	util.StartStatsReporter(ctx)
	pterm.Success.Println("Connected — the host holds editing control (/request to ask for it)")
	repl(ctx, sess, surface)
}

// runBridged serves the editor surface bridge and drives the session from
// the attached GUI instead of the console.
func runBridged(ctx context.Context, cfg config.Config, establish func(session.Surface) (*session.Session, error)) {
	srv := bridge.NewServer(cfg.BridgeAddr)
	bridgePort, err := srv.Start()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	defer srv.Close()
	pterm.Info.Println(fmt.Sprintf("Surface bridge listening on ws://127.0.0.1:%d/surface", bridgePort))

	sess, err := establish(srv)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	defer sess.Stop()

	util.StartStatsReporter(ctx)
	if err := srv.Attach(ctx, sess); err != nil && ctx.Err() == nil {
		pterm.Error.Println(fmt.Sprintf("surface bridge: %v", err))
		os.Exit(1)
	}
	pterm.Info.Println("Session ended")
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// askPort prompts the user for a port number until a valid one is entered.
func askPort(prompt string) int {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && port >= 1 && port <= 65535 {
			pterm.Println()
			return port
		}

		pterm.Warning.Println("invalid port number: must be 1 ~ 65535")
		pterm.Println()
	}
}

// askHost prompts the user for the hosting peer's address.
func askHost() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Host address (e.g. 192.168.1.20)").
			Show()

		host := strings.TrimSpace(raw)
		if host != "" {
			pterm.Println()
			return host
		}

		pterm.Warning.Println("invalid input: please enter a host address")
		pterm.Println()
	}
}
