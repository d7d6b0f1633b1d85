package main

import (
	"log"

	"github.com/anees/crimewatch-api/internal/config"
	"github.com/anees/crimewatch-api/internal/database"
	"github.com/anees/crimewatch-api/internal/handlers"
	"github.com/anees/crimewatch-api/internal/realtime"
	"github.com/anees/crimewatch-api/internal/routes"
	"github.com/anees/crimewatch-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set env vars directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	services.InitPush(cfg.FCMServiceAccount)
	services.InitMail(cfg)

	// Presence lives for the life of the process; clients rejoin on restart
	registry := realtime.NewRegistry()
	handlers.Notify = realtime.NewDispatcher(database.DB, registry)
	gateway := realtime.NewGateway(database.DB, registry)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(cors.New())
	app.Static("/uploads", "./uploads")

	routes.Setup(app, gateway)

	log.Printf("Server running on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
