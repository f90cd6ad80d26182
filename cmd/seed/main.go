// Command main runs the development database seeder.
package main

import (
	"flag"
	"log"

	"dojo/internal/config"
	"dojo/internal/database"
	"dojo/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	numMembers := flag.Int("members", 30, "Number of demo members to create")
	numPosts := flag.Int("posts", 100, "Number of demo posts to create")
	defaultsOnly := flag.Bool("defaults-only", false, "Only ensure the admin account and default taxonomy")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *defaultsOnly {
		if err := seed.EnsureDefaults(db); err != nil {
			log.Fatalf("Bootstrap failed: %v", err)
		}
		log.Println("Defaults ensured")
		return
	}

	if err := seed.Demo(db, seed.Options{NumMembers: *numMembers, NumPosts: *numPosts}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding completed")
}
