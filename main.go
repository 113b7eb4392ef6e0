package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"lms/config"
	controllers "lms/controllers/course"
	"lms/database"
	"lms/engine"
	"lms/gateway"
	courseRoutes "lms/routers/courseRoutes"
	"lms/utils"
)

func main() {
	config.LoadConfig()

	// Pick the persistence gateway: the local store owns the records,
	// or a remote deployment does and we proxy to it.
	var gw engine.Gateway
	if config.AppConfig.GatewayMode == "http" {
		gw = gateway.NewRemoteGateway(config.AppConfig.GatewayURL)
	} else {
		database.ConnectDb()
		gw = gateway.NewStoreGateway(database.Database.Db)
	}

	sessionManager := engine.NewManager(gw, time.Duration(config.AppConfig.CountdownTickMs)*time.Millisecond)
	controllers.Init(sessionManager, gw)

	// Sweep abandoned quiz sessions in the background
	utils.InitializeSessionJanitor(sessionManager, time.Duration(config.AppConfig.SessionTTLMinutes)*time.Minute)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",        // Allowed HTTP methods
		AllowHeaders: "Content-Type,Authorization", // Allowed headers
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	courseRoutes.SetupCourseRoutes(app)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
