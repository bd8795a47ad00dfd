package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/landrecords-in/jamabandi/internal/app"
	"github.com/landrecords-in/jamabandi/internal/database"
	"github.com/landrecords-in/jamabandi/internal/jamabandi"
	"github.com/landrecords-in/jamabandi/internal/models"
	"github.com/landrecords-in/jamabandi/internal/services"
	"github.com/landrecords-in/jamabandi/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("jamabandi", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var (
		configPath   string
		district     string
		subDistrict  string
		village      string
		khasraNo     string
		forceRefresh bool
	)
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")
	fs.StringVar(&district, "district_name", "", "District name (required)")
	fs.StringVar(&subDistrict, "sub_district_name", "", "Sub-district / tehsil name (required)")
	fs.StringVar(&village, "village_name", "", "Village name (required)")
	fs.StringVar(&khasraNo, "khasra_no", "", "Khasra number (required)")
	fs.BoolVar(&forceRefresh, "force_refresh", false, "Re-fetch from the portal even when the record is already stored")

	if err := fs.Parse(args); err != nil {
		return err
	}

	key := models.RecordKey{
		DistrictName: district,
		TehsilName:   subDistrict,
		VillageName:  village,
		KhasraNo:     khasraNo,
	}
	if err := validateFlags(key); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Log.Level); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(database.Config{
		Driver: cfg.Database.Driver,
		Path:   cfg.Database.Path,
		DSN:    cfg.Database.DSN,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	store, err := services.NewRecordService(db)
	if err != nil {
		return err
	}

	fetcher, err := jamabandi.NewClient(jamabandi.Config{
		BaseURL:   cfg.Portal.BaseURL,
		UserAgent: cfg.Portal.UserAgent,
		Timeout:   cfg.Portal.Timeout,
		HTMLDir:   cfg.Portal.HTMLDir,
	})
	if err != nil {
		return err
	}

	lookup, err := services.NewLookupService(store, fetcher)
	if err != nil {
		return err
	}

	logger.Info("resolving land record",
		zap.String("district", key.DistrictName),
		zap.String("tehsil", key.TehsilName),
		zap.String("village", key.VillageName),
		zap.String("khasra_no", key.KhasraNo),
		zap.Bool("force_refresh", forceRefresh))

	record, err := lookup.Resolve(ctx, key, forceRefresh)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(record)
}

func validateFlags(key models.RecordKey) error {
	var missing []string
	if key.DistrictName == "" {
		missing = append(missing, "--district_name")
	}
	if key.TehsilName == "" {
		missing = append(missing, "--sub_district_name")
	}
	if key.VillageName == "" {
		missing = append(missing, "--village_name")
	}
	if key.KhasraNo == "" {
		missing = append(missing, "--khasra_no")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %v", missing)
	}
	return nil
}

// loadApplicationConfig accepts either a directory containing config.yaml or
// a direct path to the file.
func loadApplicationConfig(path string) (*app.Config, error) {
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}
	if info.IsDir() {
		return app.LoadConfig(path)
	}
	return app.LoadConfig(filepath.Dir(path))
}
