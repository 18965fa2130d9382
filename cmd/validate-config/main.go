package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"healthsync/internal/config"
)

func main() {
	fmt.Println("Checking configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration validation failed:\n%v\n", err)
		os.Exit(1)
	}

	missing := []string{}
	if cfg.Ultrahuman.ClientID == "" {
		missing = append(missing, "ULTRAHUMAN_CLIENT_ID")
	}
	if cfg.Ultrahuman.ClientSecret == "" {
		missing = append(missing, "ULTRAHUMAN_CLIENT_SECRET")
	}
	if cfg.Ultrahuman.RedirectURI == "" {
		missing = append(missing, "ULTRAHUMAN_REDIRECT_URI")
	}
	if len(missing) > 0 {
		fmt.Println("Missing provider credentials:")
		for _, name := range missing {
			fmt.Printf("  - %s\n", name)
		}
		fmt.Println("Note: Ultrahuman requires HTTPS redirect URLs.")
		os.Exit(1)
	}

	fmt.Println("Configuration is valid!")
	fmt.Printf("Details:\n")
	fmt.Printf("  - Ultrahuman Client ID: %s\n", maskToken(cfg.Ultrahuman.ClientID))
	fmt.Printf("  - Ultrahuman Redirect URI: %s\n", cfg.Ultrahuman.RedirectURI)
	fmt.Printf("  - Ultrahuman API: %s\n", cfg.Ultrahuman.APIBaseURL)
	fmt.Printf("  - DB Host: %s\n", cfg.DB.Host)
	fmt.Printf("  - DB Port: %s\n", cfg.DB.Port)
	fmt.Printf("  - DB User: %s\n", cfg.DB.User)
	fmt.Printf("  - DB Name: %s\n", cfg.DB.DBName)
	fmt.Printf("  - Redis: %s:%s\n", cfg.Redis.Host, cfg.Redis.Port)
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
