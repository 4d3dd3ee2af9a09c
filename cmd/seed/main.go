// Command main runs the database seeder for Huellas.
package main

import (
	"context"
	"flag"
	"log"
	"sort"

	"huellas/internal/config"
	"huellas/internal/database"
	"huellas/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	numVets := flag.Int("vets", 15, "Number of veterinarians to create")
	anonymous := flag.Int("anonymous", 30, "Percentage of posts published without an account")
	maxDays := flag.Int("days", 30, "Spread post creation dates over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed, 0 for a random run")
	printSecrets := flag.Bool("secrets", false, "Print the owner secrets of anonymous posts")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d posts, %d vets, clean=%v", *numUsers, *numPosts, *numVets, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	summary, err := seed.Seed(ctx, db, seed.Options{
		Users:        *numUsers,
		Posts:        *numPosts,
		Vets:         *numVets,
		Clean:        *shouldClean,
		AnonymousPct: *anonymous,
		MaxDays:      *maxDays,
		Seed:         *randSeed,
		SkipBcrypt:   true,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	if *printSecrets {
		ids := make([]string, 0, len(summary.Secrets))
		for id := range summary.Secrets {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			log.Printf("  %s  secret=%s", id, summary.Secrets[id])
		}
	}

	log.Println("All done! Your database is now populated with demo data.")
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
