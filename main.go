package main

import (
	"context"
	"fmt"
	"os"

	"strava-canteen/bot"
	"strava-canteen/config"
	"strava-canteen/db"
	"strava-canteen/strava"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	// Without a bot token, run the one-shot demo against the account
	// from the environment.
	if cfg.Telegram.Token == "" {
		runDemo(cfg)
		return
	}

	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if v := os.Getenv("AUTO_MIGRATE"); v == "1" || v == "true" {
		if err := applyMigrations(context.Background(), false); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
	}

	b, err := bot.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
	fmt.Println("Bot started.")
	b.Start()
}

func runDemo(cfg *config.Config) {
	if cfg.Strava.Username == "" || cfg.Strava.Password == "" {
		fmt.Fprintln(os.Stderr, "set STRAVA_USERNAME and STRAVA_PASSWORD, or TOKEN for the bot")
		os.Exit(1)
	}

	c, err := strava.Connect(cfg.Strava.Username, cfg.Strava.Password, cfg.Strava.Canteen)
	if err != nil {
		fmt.Fprintln(os.Stderr, "login:", err)
		os.Exit(1)
	}
	fmt.Print(c.User)

	if _, err := c.Menu.Fetch(); err != nil {
		fmt.Fprintln(os.Stderr, "menu:", err)
		os.Exit(1)
	}
	fmt.Print(c.Menu)

	if err := c.Logout(); err != nil {
		fmt.Fprintln(os.Stderr, "logout:", err)
		os.Exit(1)
	}
	fmt.Println("Logged out")
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
