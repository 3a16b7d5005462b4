package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/jawher/mow.cli"
	"github.com/pricesheet/worker/config"
	httpDelivery "github.com/pricesheet/worker/internal/delivery/http"
	"github.com/pricesheet/worker/internal/domain"
	"github.com/pricesheet/worker/internal/report"
)

const version = "1.0.0"

func main() {
	app := cli.App("pricesheet", "Searches shopping offers for the products of a spreadsheet and writes them back")
	app.Version("v version", version)

	configPath := app.StringOpt("c config", "", "Path to a config file (defaults to ./config.yaml, ./config/config.yaml, /etc/pricesheet/config.yaml)")

	app.Command("serve", "Start the HTTP API", func(cmd *cli.Cmd) {
		cmd.Action = func() {
			serve(mustLoadConfig(*configPath))
		}
	})

	app.Command("run", "Refresh every product of the sheet once", func(cmd *cli.Cmd) {
		dryRun := cmd.BoolOpt("dry-run", false, "Log rows instead of writing them to the sheet")

		cmd.Action = func() {
			cfg := mustLoadConfig(*configPath)
			if err := runOnce(cfg, *dryRun); err != nil {
				log.Printf("Run failed: %v", err)
				cli.Exit(1)
			}
		}
	})

	app.Command("search", "Search offers for a single product and print them", func(cmd *cli.Cmd) {
		cmd.Spec = "QUERY..."
		query := cmd.StringsArg("QUERY", nil, "Product name to search for")

		cmd.Action = func() {
			cfg := mustLoadConfig(*configPath)
			if err := searchOnce(cfg, strings.Join(*query, " ")); err != nil {
				log.Printf("Search failed: %v", err)
				cli.Exit(1)
			}
		}
	})

	app.Command("history", "Print the last offers recorded for a product", func(cmd *cli.Cmd) {
		cmd.Spec = "NAME..."
		name := cmd.StringsArg("NAME", nil, "Product name as written in the sheet")

		cmd.Action = func() {
			cfg := mustLoadConfig(*configPath)
			if err := historyOnce(cfg, strings.Join(*name, " ")); err != nil {
				log.Printf("History lookup failed: %v", err)
				cli.Exit(1)
			}
		}
	})

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func mustLoadConfig(path string) *config.Config {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func serve(cfg *config.Config) {
	log.Printf("Starting pricesheet worker v%s", version)
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	if err := cfg.ValidateSheets(); err != nil {
		log.Printf("WARNING: sheet not configured (%v) - refresh calls will fail!", err)
	}

	ctx := context.Background()
	deps, err := buildDeps(ctx, cfg, false)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer deps.Close()

	handler := httpDelivery.NewHandler(deps.service)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func runOnce(cfg *config.Config, dryRun bool) error {
	if !dryRun {
		if err := cfg.ValidateSheets(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, dryRun)
	if err != nil {
		return err
	}
	defer deps.Close()

	runReport, err := deps.service.RefreshSheet(ctx)
	if runReport != nil {
		if werr := report.WriteRunReport(os.Stdout, runReport); werr != nil {
			log.Printf("Failed to print report: %v", werr)
		}
	}
	return err
}

func searchOnce(cfg *config.Config, query string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer deps.Close()

	result, err := deps.service.SearchOffers(ctx, query)
	if err != nil {
		return err
	}
	return report.WriteOffersTable(os.Stdout, result)
}

func historyOnce(cfg *config.Config, name string) error {
	if !cfg.History.Enabled {
		return fmt.Errorf("%w: history.enabled is false", domain.ErrHistoryUnavailable)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close(context.Background())

	snapshot, err := repo.Latest(ctx, name)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	return report.WriteSnapshot(os.Stdout, snapshot, loc)
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
