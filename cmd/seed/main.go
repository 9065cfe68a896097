// Command seed fills the database with demo categories, posts and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/middleware"
	"atelier/internal/seed"
	"atelier/internal/service"
)

func main() {
	presetPath := flag.String("preset", "", "Path to a YAML preset (defaults to the embedded preset)")
	seedValue := flag.Int64("seed", 0, "Random seed for reproducible content (0 = random)")
	shouldClean := flag.Bool("clean", false, "Remove existing posts before seeding")
	categoriesOnly := flag.Bool("categories-only", false, "Only ensure the preset's categories")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, cfg.LogLevel)

	if cfg.IsProduction() && *shouldClean {
		log.Fatal("Refusing to clean a production database")
	}

	preset, err := seed.LoadPreset(*presetPath)
	if err != nil {
		log.Fatalf("Failed to load preset: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	res, err := seed.Seed(ctx, db, preset, seed.Options{
		Seed:           *seedValue,
		ShouldClean:    *shouldClean,
		CategoriesOnly: *categoriesOnly,
		Fee:            service.Fee{AmountCents: cfg.ArtworkFeeCents, Currency: cfg.ArtworkCurrency},
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d categories, %d posts (%d paid, %d approved), %d votes, %d comments",
		res.Categories, res.Posts, res.Paid, res.Approved, res.Votes, res.Comments)
}
