package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/cybersathi/internal/config"
	appmigrations "github.com/wolfman30/cybersathi/migrations"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

const usage = "usage: migrate [up | down <steps> | force <version> | version]"

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component("migrate")

	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		logger.Error(err.Error())
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	databaseURL := strings.TrimSpace(cfg.DatabaseURL)
	if databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	m, closeDB, err := newMigrator(databaseURL)
	if err != nil {
		logger.Error("create migrator", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	if err := cmd.apply(m); err != nil {
		logger.Error("migration failed", "command", cmd.name, "error", err)
		os.Exit(1)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Warn("read version", "error", err)
	}
	logger.Info("migrations complete", "command", cmd.name, "version", version, "dirty", dirty)
}

type command struct {
	name string
	arg  int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "up"}, nil
	}
	name := strings.ToLower(args[0])
	switch name {
	case "up", "version":
		return command{name: name}, nil
	case "down", "force":
		if len(args) < 2 {
			return command{}, fmt.Errorf("%s needs a number", name)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("invalid number %q: %w", args[1], err)
		}
		if name == "down" && n <= 0 {
			return command{}, fmt.Errorf("down steps must be positive")
		}
		return command{name: name, arg: n}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", args[0])
	}
}

func (c command) apply(m *migrate.Migrate) error {
	var err error
	switch c.name {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-c.arg)
	case "force":
		err = m.Force(c.arg)
	case "version":
		return nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func newMigrator(databaseURL string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	closeDB := func() { _ = db.Close() }
	if err := db.Ping(); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, func() {
		_, _ = m.Close()
	}, nil
}
