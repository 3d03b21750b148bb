package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/iwanyu/marketplace/internal/app"
	"github.com/iwanyu/marketplace/internal/config"
	_ "github.com/lib/pq"
)

const migrationTable = "schema_migrations"

// buildMigrateDSN DSN для migrate с отдельной таблицей версий
func buildMigrateDSN(dbCfg config.DatabaseConfig) string {
	return app.PostgresDSN(dbCfg) + "&x-migrations-table=" + migrationTable
}

func main() {
	var (
		configPath     string
		migrationsPath string
		down           bool
		steps          int
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&migrationsPath, "migrations-path", "", "path to migration files")
	flag.BoolVar(&down, "down", false, "roll migrations back instead of applying")
	flag.IntVar(&steps, "steps", 0, "number of migrations to apply or roll back (0 = all)")
	flag.Parse()

	cfg := config.MustLoad()

	if migrationsPath == "" {
		migrationsPath = cfg.Migrations.Path
	}

	// Создаем объект мигратора
	m, err := migrate.New("file://"+migrationsPath, buildMigrateDSN(cfg.Database))
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch {
	case steps != 0 && down:
		err = m.Steps(-steps)
	case steps != 0:
		err = m.Steps(steps)
	case down:
		err = m.Down()
	default:
		err = m.Up()
	}
	if err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("migration failed: %v", err)
		}
		fmt.Println("No migrations to apply")
	} else {
		log.Println("Migrations applied successfully")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatalf("failed to read schema version: %v", err)
	}
	fmt.Printf("Schema version: %d (dirty: %t)\n", version, dirty)

	db, err := sql.Open("postgres", app.PostgresDSN(cfg.Database))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		log.Fatalf("failed to query tables: %v", err)
	}
	defer rows.Close()

	fmt.Println("Current tables in the database:")
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			log.Fatalf("failed to scan row: %v", err)
		}
		fmt.Println(" -", tableName)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("error reading rows: %v", err)
	}
}
