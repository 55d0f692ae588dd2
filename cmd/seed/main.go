// Command main seeds demo users and the galaxy catalog.
package main

import (
	"context"
	"flag"
	"log"

	"galaxydistance/internal/config"
	"galaxydistance/internal/database"
	"galaxydistance/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 5, "Number of regular users to create")
	numGalaxies := flag.Int("galaxies", 12, "Number of generated galaxies on top of the built-in catalog")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for generated data (0 picks one)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.ApplySchema(context.Background(), db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	s := seed.NewSeeder(db, *randSeed)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Run(seed.Options{RegularUsers: *numUsers, ExtraGalaxies: *numGalaxies})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users and %d galaxies", res.UsersCreated, res.GalaxiesCreated)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
