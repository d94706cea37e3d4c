package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/njy33900/PoseDataColletor/internal/logger"
	"github.com/njy33900/PoseDataColletor/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", "data/collector.db", "Database path")
	force := flag.Int("force", -1, "Force the schema version without running migrations (clears dirty state)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	db, err := sqlite.Open(*dbPath, logger.NewWriterLogger(os.Stdout))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *force >= 0 {
		if err := db.MigrateForce(*force); err != nil {
			log.Fatalf("Force failed: %v", err)
		}
		fmt.Printf("✅ Forced schema version %d\n", *force)
		return
	}

	cmd := flag.Arg(0)
	switch cmd {
	case "up", "":
		err = db.MigrateUp()
	case "down":
		err = db.MigrateDown()
	case "version":
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Migration %s failed: %v", cmd, err)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	if version == 0 && !dirty {
		fmt.Println("No migrations applied")
		return
	}
	fmt.Printf("📊 Schema version %d (dirty: %v)\n", version, dirty)

	if n, err := sqlite.NewRecordingRepository(db).Count(); err == nil {
		fmt.Printf("   Recordings: %d\n", n)
	}
}
