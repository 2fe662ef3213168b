package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/masteryflow/masteryflow/engine"
	"github.com/masteryflow/masteryflow/notifications/email"
	"github.com/masteryflow/masteryflow/queue"
	"github.com/masteryflow/masteryflow/server"
	"github.com/masteryflow/masteryflow/server/auth"
	storage "github.com/masteryflow/masteryflow/storage/persistent"
)

func main() {
	// Load the .env file.
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Error loading .env file")
	}

	// Read the environment variables from the .env file using os.Getenv.
	signingKey := os.Getenv("JWT_SIGNING_KEY") // JWT signing key for token generation
	serverURL := os.Getenv("SERVER_URL")       // The URL where the server is running
	dbURI := os.Getenv("MONGODB_URI")          // MongoDB database URI
	dbName := os.Getenv("DB_NAME")             // The name of the MongoDB database
	smtpEmail := os.Getenv("SMTP_EMAIL")       // The email address used for sending emails
	smtpPassword := os.Getenv("SMTP_PASS")     // The password for the email account
	redisURL := os.Getenv("REDIS_URL")         // The Redis URL for caching
	rabbitMQURL := os.Getenv("RABBITMQ_URL")   // The URL for the RabbitMQ message broker
	cronSecret := os.Getenv("CRON_SECRET")     // Bearer secret guarding the cron endpoints
	numProducers := 1
	numConsumers := 2
	ctx := context.Background()

	// Initialize the email service with the sender credentials
	if _, err := email.InitEmailService(smtpEmail, smtpPassword); err != nil {
		log.Printf("email service unavailable, notifications will requeue: %v", err)
	}

	// The Redis cache backs both notification deduplication and stats caching
	redisCache := queue.InitNotificationCache(redisURL)

	// Build the notification queue and start its consumers
	notificationQueue := queue.BuildNotificationQueue(rabbitMQURL, numProducers, numConsumers, redisCache)
	_, _, err = notificationQueue.StartConsumers(ctx)
	if err != nil {
		log.Fatal("error starting queue consumers: ", err)
	}

	// Connect to MongoDB
	store, err := storage.NewStorage(dbName, dbURI)
	if err != nil {
		log.Fatal("error initializing storage: ", err)
	}

	// The engine owns mission assembly and settlement on top of the store
	eng := engine.NewEngine(store, engine.SystemClock{})

	// Initialize the authentication service
	auth.InitAuth(store, signingKey, notificationQueue)

	// Wire and start the REST server
	server.Init(store, eng, redisCache, notificationQueue, cronSecret)
	go server.Start(serverURL, signingKey)

	// Setting up the signal interrupt handler to gracefully shutdown our server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	fmt.Println()
	fmt.Println(sig)

	if err := store.Disconnect(); err != nil {
		log.Printf("error disconnecting storage: %v", err)
	}
	if err := redisCache.Disconnect(); err != nil {
		log.Printf("error disconnecting cache: %v", err)
	}
}
