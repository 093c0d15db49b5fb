package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	pgstore "github.com/dwarvesf/paywatch/internal/store/postgres"
	"github.com/dwarvesf/paywatch/internal/utils/config"
	"github.com/dwarvesf/paywatch/internal/utils/logger"
)

func newMigrate(appConfig *config.AppConfig, dir string) (*migrate.Migrate, error) {
	sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(dir))
	databaseURL := pgstore.URL(appConfig)

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migrate instance")
	}
	return m, nil
}

func runMigrations(m *migrate.Migrate, direction string, steps int, logger *logger.Logger) error {
	var err error
	switch direction {
	case "up":
		err = m.Up()
	case "down":
		if steps <= 0 {
			return errors.New("down requires -steps > 0")
		}
		err = m.Steps(-steps)
	default:
		return errors.Errorf("unknown direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration failed")
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return errors.Wrap(verr, "failed to read schema version")
	}
	logger.Info("Migrations completed successfully", map[string]string{
		"direction": direction,
		"version":   fmt.Sprint(version),
		"dirty":     fmt.Sprint(dirty),
	})
	return nil
}

func main() {
	direction := flag.String("direction", "up", "up or down")
	steps := flag.Int("steps", 0, "number of down migrations to apply")
	dir := flag.String("dir", filepath.Join("migrations", "schema"), "migration files directory")
	flag.Parse()

	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	m, err := newMigrate(appConfig, *dir)
	if err != nil {
		logger.Error("[main][newMigrate] failed to init migrations", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer m.Close()

	if err := runMigrations(m, *direction, *steps, logger); err != nil {
		logger.Error("[main][runMigrations] failed to run migrations", map[string]string{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
