// The processor runs one file through the extraction pipeline. It is built
// to run as a bucket-triggered job: the triggering object key arrives via
// the CloudEvents environment, with a -file flag for local runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/gridport/internal/config"
	"github.com/MrJamesThe3rd/gridport/internal/database"
	"github.com/MrJamesThe3rd/gridport/internal/export"
	"github.com/MrJamesThe3rd/gridport/internal/grid"
	"github.com/MrJamesThe3rd/gridport/internal/pipeline"
	"github.com/MrJamesThe3rd/gridport/internal/spec"
	"github.com/MrJamesThe3rd/gridport/internal/store"
	"github.com/MrJamesThe3rd/gridport/internal/trigger"
)

func main() {
	_ = godotenv.Load()

	filePath := flag.String("file", "", "process this file instead of the triggering event's object")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	if err := run(context.Background(), log, *filePath); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, filePath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	objectKey := ""

	if filePath == "" {
		ev, ok, err := trigger.Resolve(nil)
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf("no -file flag and no triggering event")
		}

		objectKey = ev.ObjectKey
		filePath = filepath.Join(cfg.Extraction.InputDir, filepath.FromSlash(ev.ObjectKey))

		log.Info("triggered by event", "object", ev.ObjectKey, "job", ev.Job, "run", ev.JobRun)
	}

	extractionSpec, err := spec.LoadFile(cfg.Extraction.SpecPath)
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	runs := store.NewStatusStore(db)
	if err := runs.Init(ctx); err != nil {
		return err
	}

	fileName := filepath.Base(filePath)

	var size int64
	if info, err := os.Stat(filePath); err == nil {
		size = info.Size()
	}

	run, err := runs.CreateRun(ctx, fileName, objectKey, size)
	if err != nil {
		return err
	}

	sheets, err := loadSheets(extractionSpec, fileName, filePath)
	if err != nil {
		if cerr := runs.CompleteRun(ctx, run.ID, store.StatusFailure, err.Error()); cerr != nil {
			log.Error("recording failure", "error", cerr)
		}

		return err
	}

	p := pipeline.New(extractionSpec,
		store.NewWriter(db).WithBatchSize(cfg.Extraction.BatchSize),
		export.NewService(cfg.Extraction.OutputDir),
		log)

	result := p.ProcessFile(ctx, fileName, sheets)

	if err := runs.CompleteRun(ctx, run.ID, result.Status, result.Detail()); err != nil {
		log.Error("recording result", "error", err)
	}

	switch result.Status {
	case store.StatusFailure:
		return fmt.Errorf("processing %s failed: %s", fileName, result.Detail())
	case store.StatusPartialFailure:
		log.Warn("some tables failed", "file", fileName, "detail", result.Detail())
	}

	return nil
}

// loadSheets reads the input into worksheet grids. A CSV has no workbook
// structure, so its single grid registers under the sheet key its spec
// entry declares, falling back to "Sheet1".
func loadSheets(s *spec.Spec, fileName, path string) (map[string]*grid.Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		g, err := grid.LoadCSVFile(path)
		if err != nil {
			return nil, err
		}

		return map[string]*grid.Grid{csvSheetName(s, fileName): g}, nil
	default:
		return grid.LoadXLSX(path)
	}
}

func csvSheetName(s *spec.Spec, fileName string) string {
	if fs, ok := s.Lookup(fileName); ok && len(fs.Sheets) == 1 {
		for name := range fs.Sheets {
			return name
		}
	}

	return "Sheet1"
}
