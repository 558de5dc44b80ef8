package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradeledger/internal/api"
	"tradeledger/internal/config"
	"tradeledger/internal/identity"
	"tradeledger/internal/ledger"
	"tradeledger/internal/market"
	"tradeledger/internal/realtime"
	"tradeledger/internal/repository"
)

func main() {
	configPath := flag.String("config", os.Getenv("LEDGER_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var store repository.Store
	if cfg.Database.URL != "" {
		db, err := repository.NewDatabase(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("database init failed: %v", err)
		}
		defer db.Close()
		store = db
		log.Printf("using postgres store")
	} else {
		store = repository.NewMemory()
		log.Printf("using in-memory store")
	}

	startingCash, err := cfg.StartingCash()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	provider := market.NewProvider()
	book := ledger.New(store, provider, ledger.Config{
		StartingCash:     startingCash,
		PortfolioName:    cfg.Ledger.PortfolioName,
		WatchlistName:    cfg.Ledger.WatchlistName,
		WatchlistSymbols: cfg.Ledger.WatchlistSymbols,
		TradeLogLimit:    cfg.Ledger.TradeLogLimit,
	})
	resolver := identity.NewResolver(store)
	hub := realtime.NewHub()
	apiServer := api.NewServer(book, resolver, hub, cfg.Server.AllowedOrigins)

	go refreshQuotes(ctx, provider, cfg.Ledger.WatchlistSymbols, cfg.Market.RefreshInterval)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("trade ledger listening on %s", cfg.Server.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}

// refreshQuotes keeps the quote cache warm for the tracked symbols so fills
// and snapshots mark positions at recent prices.
func refreshQuotes(ctx context.Context, provider *market.Provider, symbols []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := provider.Refresh(ctx, symbols); err != nil {
		log.Printf("quote refresh failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := provider.Refresh(ctx, symbols); err != nil {
				log.Printf("quote refresh failed: %v", err)
			}
		}
	}
}
