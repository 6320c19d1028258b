// Command seed fills the Warbler database with demo users, messages, follows and likes.
package main

import (
	"context"
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numMessages := flag.Int("messages", 5, "Messages per user")
	numFollows := flag.Int("follows", 10, "Follow attempts per user")
	numLikes := flag.Int("likes", 10, "Like attempts per user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	password := flag.String("password", seed.DefaultPassword, "Password for every seeded user")
	randomSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	flag.Parse()

	log.Printf("Target: %d users, %d messages each, clean=%v", *numUsers, *numMessages, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.Seed(context.Background(), db, seed.Options{
		NumUsers:        *numUsers,
		MessagesPerUser: *numMessages,
		FollowsPerUser:  *numFollows,
		LikesPerUser:    *numLikes,
		ShouldClean:     *shouldClean,
		Password:        *password,
		BcryptCost:      cfg.BcryptCost,
		RandomSeed:      *randomSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d messages, %d follows, %d likes",
		summary.Users, summary.Messages, summary.Follows, summary.Likes)
	log.Printf("All seeded users have the password: %s", *password)
}
