package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"vpfs.org/internal/config"
	"vpfs.org/internal/migrate"
	"vpfs.org/internal/obs"
	"vpfs.org/internal/store"
)

func main() {
	log := obs.Logger()
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		driver     = flag.String("driver", "", "database driver (postgres|sqlite); overrides config")
		dsn        = flag.String("dsn", "", "database DSN; overrides config")
	)
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [-config file] [-driver d] [-dsn dsn] [up|down|seed|status]")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if *driver != "" {
		cfg.DB.Driver = *driver
	}
	if *dsn != "" {
		cfg.DB.DSN = *dsn
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}
	defer db.Close()

	mgr, err := migrate.NewManager(db, cfg.DB.Driver, migrate.WithAdminPassword(cfg.Seed.AdminPassword))
	if err != nil {
		log.WithError(err).Fatal("migrator")
	}

	var lines []string
	switch cmd := flag.Arg(0); cmd {
	case "up":
		lines, err = mgr.Up(ctx)
	case "down":
		var line string
		line, err = mgr.Down(ctx)
		lines = []string{line}
	case "seed":
		var created bool
		created, err = mgr.Seed(ctx)
		if created {
			lines = []string{"created administrator"}
		} else {
			lines = []string{"administrator already present"}
		}
	case "status":
		lines, err = mgr.Status(ctx)
	default:
		log.Fatalf("unknown command %q", cmd)
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	if err != nil {
		log.WithError(err).Fatalf("migrate %s", flag.Arg(0))
	}
}
