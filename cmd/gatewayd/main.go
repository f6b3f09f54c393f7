// Command gatewayd is the process entry point: it loads an INI
// configuration, builds the ambient logging/auth stack, and hosts the
// handle table and application-module registry that the rest of this
// module's packages are built to serve.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/webrtcgw/gwcore/internal/appmodule"
	"github.com/webrtcgw/gwcore/internal/auth"
	"github.com/webrtcgw/gwcore/internal/config"
	"github.com/webrtcgw/gwcore/internal/negotiate"
)

func main() {
	configPath := flag.String("config", "", "path to the gateway's INI configuration file")
	addr := flag.String("addr", ":8088", "address the signaling HTTP API listens on")
	flag.Parse()

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	factory := newZerologFactory(zl)
	log := factory.NewLogger("gatewayd")

	opts := config.DefaultOptions()
	authStore := auth.Store(auth.AlwaysValid{})

	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Errorf("failed to open config %s: %v", *configPath, err)
			os.Exit(1)
		}
		doc, err := config.ParseINI(f)
		_ = f.Close()
		if err != nil {
			log.Errorf("failed to parse config %s: %v", *configPath, err)
			os.Exit(1)
		}
		log.Infof("loaded configuration categories: %v", config.SortedCategories(doc))
		if tokens := buildAuthStore(doc); tokens != nil {
			authStore = tokens
		}
	}

	manager := newHandleManager()
	sink := &logSink{log: factory.NewLogger("signaling")}
	gw := appmodule.NewGateway(manager.lookup, sink, authStore)
	registry := appmodule.NewRegistry()
	_ = gw // the Callbacks a module's Lifecycle.Init receives once loaded via registry.Register; no loader lives in this process yet

	negCfg := negotiate.FromOptions(opts)

	log.Infof("gateway core ready: ice-lite=%v rfc4588=%v max-nack-queue=%d",
		opts.ICELite, opts.RFC4588, opts.MaxNACKQueue)
	log.Infof("%d modules registered, %d handles live", len(registry.Names()), manager.count())

	server := newSignalingServer(manager, registry, negCfg, factory.NewLogger("signaling-http"))
	if err := server.Start(*addr); err != nil {
		log.Errorf("signaling api failed to start on %s: %v", *addr, err)
		os.Exit(1)
	}
	log.Infof("signaling api listening on %s", *addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Infof("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		log.Errorf("signaling api shutdown error: %v", err)
	}
}

// buildAuthStore reads a "tokens" category ("token = desc1,desc2" per
// item) into a StaticTokens store, the stored-token authentication mode.
func buildAuthStore(doc *config.Document) auth.Store {
	if !doc.HasCategory("tokens") {
		return nil
	}
	cat := doc.Category("tokens")
	tokens := make(map[string][]string)
	for _, token := range cat.Items() {
		v, _ := cat.Get(token)
		var descs []string
		for _, d := range strings.Split(v, ",") {
			if d = strings.TrimSpace(d); d != "" {
				descs = append(descs, d)
			}
		}
		tokens[token] = descs
	}
	return auth.NewStaticTokens(tokens)
}
