// Command main runs the database seeder for Seniority.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"seniority/internal/config"
	"seniority/internal/database"
	"seniority/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.Users, "users", opts.Users, "Number of users to create")
	flag.IntVar(&opts.PostsPerUser, "posts", opts.PostsPerUser, "Posts per user")
	flag.IntVar(&opts.CommentsPerPost, "comments", opts.CommentsPerPost, "Comments per post")
	flag.IntVar(&opts.MaxLikesPerPost, "likes", opts.MaxLikesPerPost, "Maximum likes per post")
	flag.IntVar(&opts.FollowsPerUser, "follows", opts.FollowsPerUser, "Follows started by each user")
	flag.IntVar(&opts.Games, "games", opts.Games, "Game sessions to start")
	flag.IntVar(&opts.Groups, "groups", opts.Groups, "Community groups to start")
	flag.DurationVar(&opts.MaxAge, "max-age", opts.MaxAge, "Spread post times over this window")
	flag.BoolVar(&opts.Clean, "clean", opts.Clean, "Clean database before seeding")
	randomSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.NewSeeder(db, *randomSeed).Run(context.Background(), opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %s", summary)
}
