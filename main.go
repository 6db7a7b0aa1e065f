package main

import (
	"context"
	"log"

	"go-mlapi/config"
	"go-mlapi/cronjobs"
	"go-mlapi/db"
	"go-mlapi/feed"
	"go-mlapi/geocode"
	"go-mlapi/mlapi"
	"go-mlapi/nlp"
	"go-mlapi/routes"
	"go-mlapi/summarization"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	client := mlapi.New(cfg.Endpoint, cfg.Key, mlapi.WithVersion(cfg.APIVersion))
	log.Printf("Language endpoint: %s (api-version %s)", cfg.Endpoint, client.Version())

	deps := routes.Deps{
		Analyzer:  client,
		FeedURIs:  cfg.FeedURIs,
		FeedLimit: cfg.FeedLimit,
	}

	// Google Natural Language provider
	if cfg.NaturalLanguageCredentials != "" {
		creds, err := config.DecodeCredentials(cfg.NaturalLanguageCredentials)
		if err != nil {
			log.Fatalf("Failed to decode Natural language credentials: %v", err)
		}
		google, err := nlp.NewClient(ctx, creds)
		if err != nil {
			log.Fatalf("Failed to create Natural Language client: %v", err)
		}
		defer google.Close()
		deps.Google = google
	} else {
		log.Println("NATURAL_LANGUAGE_CREDENTIALS not set, google provider disabled")
	}

	// Storage, feed processing and cron jobs need Firestore
	if cfg.FirebaseCredentials != "" {
		creds, err := config.DecodeCredentials(cfg.FirebaseCredentials)
		if err != nil {
			log.Fatalf("Failed to decode Firestore credentials: %v", err)
		}
		firestoreClient, err := db.InitFirestore(ctx, creds)
		if err != nil {
			log.Fatalf("Failed to initialize Firestore: %v", err)
		}
		defer db.CloseFirestore()

		store := db.NewStore(firestoreClient)
		deps.Posts = store

		var opts []feed.Option
		if cfg.MapsKey != "" {
			geocoder, err := geocode.NewGeocoder(cfg.MapsKey)
			if err != nil {
				log.Fatalf("Failed to create maps client: %v", err)
			}
			opts = append(opts, feed.WithGeocoder(geocoder))
		}
		if cfg.OpenAIKey != "" {
			log.Println("OPENAI_API_KEY loaded")
			opts = append(opts, feed.WithSummarizer(summarization.NewSummarizer(cfg.OpenAIKey)))
		}

		processor := feed.NewProcessor(feed.NewFetcher(""), client, store, opts...)
		deps.Feed = processor

		if len(cfg.FeedURIs) > 0 {
			scheduler, err := cronjobs.InitCronJobs(processor, cfg.FeedURIs, cfg.FeedLimit, cfg.FeedSchedule)
			if err != nil {
				log.Fatalf("Failed to schedule feeds: %v", err)
			}
			defer scheduler.Stop()
		}
	} else {
		log.Println("FIREBASE_CREDENTIALS not set, feed processing disabled")
	}

	r := routes.SetupRouter(deps)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
