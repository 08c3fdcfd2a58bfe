package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "internal/infrastructure/migration/sql"

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Directory new migrations are created in")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	// Commands that don't need a database
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name>")
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1])
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created successfully",
			zap.Uint("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return

	case "list":
		migrations, err := migration.Embedded()
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		if len(migrations) == 0 {
			log.Info("No migrations found")
			return
		}
		log.Info("Embedded migrations", zap.Int("count", len(migrations)))
		for _, m := range migrations {
			fmt.Printf("  %06d  %s\n", m.Version, m.Name)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Storage.Backend != config.BackendPostgres {
		log.Fatal("Migrations apply to the postgres backend only; sqlite creates its table on start",
			zap.String("backend", cfg.Storage.Backend))
	}

	db, err := sql.Open("postgres", cfg.Storage.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	// The migrator owns db from here on and closes it
	m, err := migration.New(db, log)
	if err != nil {
		_ = db.Close()
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Error("Failed to close migrator", zap.Error(err))
		}
	}()

	if err := run(m, command, args[1:], log); err != nil {
		log.Error("Migration command failed", zap.String("command", command), zap.Error(err))
		printUsage()
		os.Exit(1)
	}
}

func run(m *migration.Migrator, command string, args []string, log *zap.Logger) error {
	switch command {
	case "up":
		return m.Up()

	case "down":
		return m.Down()

	case "step":
		if len(args) < 1 {
			return fmt.Errorf("step count required")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("No migrations applied")
			return nil
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil

	case "force":
		if len(args) < 1 {
			return fmt.Errorf("version required")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number %q", args[0])
		}
		return m.Force(version)
	}
	return fmt.Errorf("unknown command %q", command)
}

func printUsage() {
	fmt.Println(`Stock ledger schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up              Apply all pending migrations
  down            Roll back all migrations
  step <n>        Apply n migrations (negative rolls back)
  version         Print the current migration version
  force <v>       Set the version without migrating, clearing a dirty state
  list            List the embedded migrations
  create <name>   Create a new up/down migration pair in -path

Flags:
  -path string        Directory new migrations are created in
  -log-level string   Log level (default "info")`)
}
