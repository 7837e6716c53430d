// cmd/ciguard-server/main.go
//
// Standalone validation service. Clients POST CI documents and get findings
// back; nothing is ever executed.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/xjubep/ciguard/internal/config"
	"github.com/xjubep/ciguard/internal/lint"
	"github.com/xjubep/ciguard/internal/observability"
	"github.com/xjubep/ciguard/internal/server"
	"github.com/xjubep/ciguard/plugins"
)

func main() {
	addr := flag.String("addr", "", "listen address (defaults to CIGUARD_LISTEN_ADDR)")
	rulesDir := flag.String("rules", "", "directory of custom rule definitions")
	flag.Parse()

	cfg, err := config.New(".")
	if err != nil {
		die("load config: %v", err)
	}
	logger := observability.InitLogger("ciguard-server", cfg.Env.Debug)

	registry := lint.Builtin()
	dir := *rulesDir
	if dir == "" {
		dir = cfg.RulesDir()
	}
	if err := plugins.RegisterCustomRules(registry, dir); err != nil {
		die("load custom rules: %v", err)
	}

	srv, err := server.New(registry, logger)
	if err != nil {
		die("build server: %v", err)
	}

	listen := *addr
	if listen == "" {
		listen = cfg.Env.ListenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx, listen); err != nil {
		die("serve: %v", err)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
