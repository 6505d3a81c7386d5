package cmd

import (
	"fmt"
	"log"

	"github.com/cpdtrack/cpd-management/internal/access"
	entryPostgres "github.com/cpdtrack/cpd-management/internal/entry/postgres"
	"github.com/cpdtrack/cpd-management/internal/goal"
	goalPostgres "github.com/cpdtrack/cpd-management/internal/goal/postgres"
	"github.com/cpdtrack/cpd-management/internal/hierarchy"
	hierarchyPostgres "github.com/cpdtrack/cpd-management/internal/hierarchy/postgres"
	"github.com/cpdtrack/cpd-management/pkg/logger"
	"github.com/spf13/cobra"
)

// Intended to be invoked by an external scheduler, e.g. a cron entry running
// `cpd-management sweep` nightly. Catches deadline passings that no mutation
// event would ever trigger.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Recompute progress for all active and overdue goals",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		lg := logger.LoggerWrapper()

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlxDB.Close()

		gormDB, err := initGormDB(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		hierarchyService := hierarchy.NewService(hierarchyPostgres.NewHierarchyRepository(gormDB), lg)
		engine := access.NewEngine(hierarchyService, lg)
		goalService := goal.NewService(
			goalPostgres.NewGoalRepository(gormDB), hierarchyService, entryPostgres.NewEntryRepository(gormDB), engine, lg)

		result, err := goalService.SweepActiveGoals(cfg.Goals.SweepBatchSize)
		if err != nil {
			log.Fatalf("sweep failed: %v", err)
		}

		fmt.Printf("Sweep finished: %d attempted, %d succeeded\n", result.Attempted, result.Succeeded)
	},
}
