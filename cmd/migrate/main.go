package main

import (
	"context"
	"crypto/sha256"
	"embed"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/paarshan4800/fin-advisor/internal/config"
	"github.com/paarshan4800/fin-advisor/internal/logger"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pattern to match migration files: 0001_name.sql
var filenamePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a config file")
		appliedBy  = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		dryRun     = flag.Bool("dry-run", false, "List pending migrations without applying them")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.JSON)
	if cfg.Ledger.Project == "" {
		log.Fatal().Msg("ledger.project (LEDGER_PROJECT) is required")
	}

	migrationsFS, err := fs.Sub(embedded, "migrations")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open embedded migrations")
	}
	migrations, err := readMigrations(migrationsFS, map[string]string{
		"{{PROJECT_ID}}": cfg.Ledger.Project,
		"{{DATASET_ID}}": cfg.Ledger.Dataset,
		"{{TABLE}}":      cfg.Ledger.Table,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, cfg.Ledger.Project)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	r := &runner{client: client, project: cfg.Ledger.Project, dataset: cfg.Ledger.Dataset, appliedBy: *appliedBy, log: log}
	log.Info().Str("project", r.project).Str("dataset", r.dataset).Msg("Connected to BigQuery")

	if err := r.ensureSchemaMigrationsTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	applied, err := r.appliedMigrations(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}
	for _, d := range checksumDrift(migrations, applied) {
		log.Warn().Str("migration", d).Msg("Applied migration changed since it ran")
	}

	todo := pending(migrations, applied)
	if len(todo) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
		return
	}

	for _, m := range todo {
		mlog := log.With().Str("migration", fmt.Sprintf("%04d_%s", m.Version, m.Name)).Logger()
		if *dryRun {
			mlog.Info().Msg("Pending")
			continue
		}
		if err := r.run(ctx, m.SQL, nil); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to execute migration")
		}
		if err := r.record(ctx, m); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to record migration")
		}
		mlog.Info().Msg("Applied")
	}
}

// readMigrations loads every NNNN_name.sql file of fsys sorted by version,
// substituting the placeholders. Checksums cover the file before substitution
// so the same migration matches across projects.
func readMigrations(fsys fs.FS, replacements map[string]string, log zerolog.Logger) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("readMigrations: read directory: %w", err)
	}

	seen := make(map[int]string)
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			log.Warn().Str("file", entry.Name()).Msg("Skipping file with invalid format")
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			log.Warn().Str("file", entry.Name()).Msg("Skipping file with invalid version")
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("readMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("readMigrations: read %s: %w", entry.Name(), err)
		}

		sql := string(content)
		for placeholder, value := range replacements {
			sql = strings.ReplaceAll(sql, placeholder, value)
		}

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// pending returns the migrations whose version has not been applied.
func pending(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	var out []Migration
	for _, m := range all {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// checksumDrift names applied migrations whose file has since changed.
func checksumDrift(all []Migration, applied []AppliedMigration) []string {
	byVersion := make(map[int]Migration, len(all))
	for _, m := range all {
		byVersion[m.Version] = m
	}
	var out []string
	for _, a := range applied {
		m, ok := byVersion[a.Version]
		if ok && a.Checksum != "" && a.Checksum != m.Checksum {
			out = append(out, m.Filename)
		}
	}
	return out
}

type runner struct {
	client    *bigquery.Client
	project   string
	dataset   string
	appliedBy string
	log       zerolog.Logger
}

func (r *runner) migrationsTable() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", r.project, r.dataset)
}

// run executes one statement and waits for it.
func (r *runner) run(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	query := r.client.Query(sql)
	query.Parameters = params
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func (r *runner) ensureSchemaMigrationsTable(ctx context.Context) error {
	return r.run(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, r.migrationsTable()), nil)
}

// appliedMigrations retrieves the list of already applied migrations
func (r *runner) appliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	query := r.client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, r.migrationsTable()))
	it, err := query.Read(ctx)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return []AppliedMigration{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

// record stores a successfully applied migration in schema_migrations
func (r *runner) record(ctx context.Context, m Migration) error {
	return r.run(ctx, fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, r.migrationsTable()), []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: r.appliedBy},
	})
}
