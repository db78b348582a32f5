package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"resume-analyzer/config"
	"resume-analyzer/internal/domain/user"
	"resume-analyzer/internal/repository"
	"resume-analyzer/internal/services"
	"resume-analyzer/pkg/database"
	"resume-analyzer/pkg/logger"
)

const usage = `
Resume Analyzer - Database CLI Tool

Usage:
  migrate [flags] [command]

Commands:
  status             Show database connection status and account counts
  indexes            Create the users collection indexes
  seed               Create the admin account if it does not exist
  upgrade-passwords  Hash every remaining plaintext password

Flags:
  -admin-email string  Admin email for seeding (default "admin@resume-analyzer.local")
  -admin-pass string   Admin password for seeding (default "Admin@123!")
  -timeout duration    Timeout for the whole command (default 2m)

Examples:
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go indexes
  go run cmd/migrate/main.go -admin-email ops@example.com -admin-pass 'S3cret!pass' seed
  go run cmd/migrate/main.go upgrade-passwords
`

func main() {
	// Define flags
	adminEmail := flag.String("admin-email", "admin@resume-analyzer.local", "Admin email for seeding")
	adminPass := flag.String("admin-pass", "Admin@123!", "Admin password for seeding")
	timeout := flag.Duration("timeout", 2*time.Minute, "Timeout for the whole command")

	flag.Usage = func() {
		fmt.Print(usage)
	}

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	// Load config and connect to database
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	l := logger.New(cfg.AppMode)
	defer l.Sync()

	database.Connect(cfg)
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	repo := repository.NewUserRepository(database.DB)
	userService := services.NewUserService(repo, l)

	switch command {
	case "status":
		showStatus(ctx, repo)
	case "indexes":
		runIndexes(ctx, repo)
	case "seed":
		runSeed(ctx, userService, *adminEmail, *adminPass)
	case "upgrade-passwords":
		runUpgradePasswords(ctx, userService)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func showStatus(ctx context.Context, repo repository.UserRepository) {
	log.Println("🔍 Checking database status...")

	if err := database.HealthCheck(ctx); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	_, total, err := repo.ListUsers(ctx, 1, 1)
	if err != nil {
		log.Fatalf("❌ Failed to count users: %v", err)
	}
	log.Printf("✅ Collection %-12s %d documents", user.CollectionName, total)

	legacy, err := repo.ListLegacyPasswordUsers(ctx)
	if err != nil {
		log.Printf("⚠️  Error checking legacy passwords: %v", err)
		return
	}
	if len(legacy) > 0 {
		log.Printf("⚠️  %d accounts still store a plaintext password, run upgrade-passwords", len(legacy))
	} else {
		log.Println("✅ All stored passwords are hashed")
	}
}

func runIndexes(ctx context.Context, repo repository.UserRepository) {
	log.Println("🚀 Creating indexes...")

	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("❌ Index creation failed: %v", err)
	}

	log.Println("✅ Indexes are in place!")
}

func runSeed(ctx context.Context, userService *services.UserService, adminEmail, adminPass string) {
	log.Println("🌱 Seeding admin account...")

	admin, created, err := userService.EnsureUser(ctx, services.CreateUserInput{
		Email:    adminEmail,
		Password: adminPass,
		Role:     user.RoleAdmin,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	if created {
		log.Printf("✅ Admin user created: %s (ID: %s)", admin.Email, admin.ID)
	} else {
		log.Printf("✅ Admin user already exists: %s (ID: %s, role: %s)", admin.Email, admin.ID, admin.Role)
	}
}

func runUpgradePasswords(ctx context.Context, userService *services.UserService) {
	log.Println("🔐 Upgrading plaintext passwords...")

	report, err := userService.UpgradeLegacyPasswords(ctx)
	if err != nil {
		log.Fatalf("❌ Upgrade failed: %v", err)
	}

	log.Println("📊 Upgrade Summary:")
	log.Printf("   - Scanned:  %d", report.Scanned)
	log.Printf("   - Upgraded: %d", report.Upgraded)
	log.Printf("   - Failed:   %d", report.Failed)

	if report.Failed > 0 {
		log.Fatalf("❌ %d accounts could not be upgraded", report.Failed)
	}
	log.Println("✅ Password upgrade completed!")
}
