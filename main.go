package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ticket-bot/bot"
	"ticket-bot/config"
	"ticket-bot/events"
	"ticket-bot/handlers"
	"ticket-bot/lang"
	"ticket-bot/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to config file")
	cleanup := flag.Bool("cleanup", false, "Remove slash commands on shutdown")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Discord.Token == "" || cfg.Discord.Token == "YOUR_DISCORD_BOT_TOKEN_HERE" {
		log.Fatal("Set your bot token in config.json → discord.token")
	}

	lang.Load(cfg.Lang.Path)

	if err := storage.InitDB(cfg); err != nil {
		log.Fatalf("Failed to initialise settings store: %v", err)
	}
	defer storage.DB.Close()

	if cfg.Events.Enabled {
		pub, err := events.Connect(cfg.Events.URL, cfg.Events.Exchange)
		if err != nil {
			log.Printf("WARNING: Event publisher init failed: %v (events disabled)", err)
		} else {
			handlers.EventBus = pub
			defer pub.Close()
		}
	}

	b, err := bot.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	handlers.Register(b.Session)

	if err := b.Start(); err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}
	defer b.Stop()

	registered := b.RegisterCommands(handlers.Commands())

	log.Println("Bot is running. Press Ctrl+C to exit.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	if *cleanup {
		b.CleanupCommands(registered)
	}
}
