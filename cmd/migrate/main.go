package main

import (
	"flag"
	"log"

	"survey-assistant-be/internal/config"
	"survey-assistant-be/pkg/database"
)

func main() {
	listOnly := flag.Bool("list", false, "print the managed tables and exit")
	flag.Parse()

	if *listOnly {
		for _, m := range database.Models() {
			log.Printf("%T", m)
		}
		return
	}

	cfg := config.Load()
	opts := cfg.Database.Options()
	opts.MaxOpenConns = 1

	db, err := database.NewGormDB(cfg.Database.Connection, opts)
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to database: %v", err)
	}

	log.Println("[INFO] Migrating reasoning memory tables")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	log.Printf("[INFO] Migration complete (%d tables)", len(database.Models()))
}
