package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"resume-analyzer/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

func Connect(cfg *config.Config) {
	timeout := time.Duration(cfg.MongoTimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetRetryWrites(true).
		SetServerSelectionTimeout(timeout).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(time.Hour)

	var err error
	Client, err = mongo.Connect(ctx, opts)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	if err := Client.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatalf("Failed to reach MongoDB: %v", err)
	}

	DB = Client.Database(cfg.MongoDBName)
	log.Println("MongoDB connection established")
}

func Close() {
	if Client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting MongoDB: %v", err)
	}
}

// HealthCheck pings the primary.
func HealthCheck(ctx context.Context) error {
	if Client == nil {
		return fmt.Errorf("mongodb client not initialized")
	}
	if err := Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongodb ping: %w", err)
	}
	return nil
}
