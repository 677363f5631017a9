package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"character-quiz-service/internal/app"
	"character-quiz-service/internal/config"
	"character-quiz-service/internal/domain"
	"character-quiz-service/internal/infra/memory"
	"character-quiz-service/internal/infra/postgres"
	infraredis "character-quiz-service/internal/infra/redis"
	transport "character-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port, secret *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, *secret)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag, secretFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	secret := secretFlag
	if secret == "" {
		secret = cfg.Auth.JWTSecret
	}
	if secret == "" {
		log.Printf("auth.jwtSecret not set: trusting the userId query parameter")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks())
	var progressRepo app.ProgressRepository = memory.NewProgressStore()
	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db); err != nil {
			return err
		}

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		loader = postgres.NewCatalogLoader(pool)
		progressRepo = postgres.NewProgressStore(db)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var questionRepo app.QuestionRepository
	var sessionRepo app.SessionRepository
	var statsRepo app.StatsRepository
	if redisClient != nil {
		questionRepo = infraredis.NewQuestionRepository(redisClient, loader, catalogTTL)
		sessionRepo = infraredis.NewSessionStore(redisClient, redisTTL)
		statsRepo = infraredis.NewStatsStore(redisClient)
	} else {
		questionRepo = memory.NewQuestionRepository(loader, catalogTTL)
		sessionRepo = memory.NewSessionStore()
		statsRepo = memory.NewStatsStore()
	}

	settings := app.GameSettings{
		MaxLives:     cfg.Game.MaxLives,
		MaxQuestions: cfg.Game.MaxQuestions,
		TimeLimit:    config.TTLDuration(cfg.Game.TimeLimit, 10*time.Minute),
	}
	progress := app.NewProgressService(progressRepo, statsRepo)
	game := app.NewGameService(sessionRepo, questionRepo, progress, settings)
	leaderboard := app.NewLeaderboardService(statsRepo, cfg.Leaderboard.DefaultLimit)

	auth := transport.NewAuthenticator(secret)
	mux := transport.NewRouter(
		transport.NewWSHandler(game, auth),
		transport.NewAPIHandler(progress, leaderboard, questionRepo, auth),
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting character quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks seeds two characters for local play; configure postgres.url to serve the real catalog.
func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"elsa": {
			Character: domain.Character{ID: "elsa", Name: "Elsa", Difficulty: domain.DifficultyMedium},
			Questions: []domain.Question{
				{
					ID:                 "elsa-1",
					CharacterID:        "elsa",
					Kind:               domain.KindMultipleChoice,
					Prompt:             "Where does Elsa build her ice palace?",
					Options:            []string{"Arendelle", "Corona", "North Mountain", "Weselton"},
					CorrectAnswerIndex: 2,
					Difficulty:         domain.DifficultyMedium,
					Explanation:        "She climbs the North Mountain while singing Let It Go.",
				},
				{
					ID:                 "elsa-2",
					CharacterID:        "elsa",
					Kind:               domain.KindMultipleChoice,
					Prompt:             "What is the name of the snowman Elsa creates?",
					Options:            []string{"Sven", "Olaf", "Marshmallow", "Kristoff"},
					CorrectAnswerIndex: 1,
					Difficulty:         domain.DifficultyEasy,
				},
				{
					ID:                "elsa-3",
					CharacterID:       "elsa",
					Kind:              domain.KindEssay,
					Prompt:            "Which trait lets Elsa finally control her powers?",
					CorrectAnswerText: "love",
					AcceptedAnswers:   []string{"true love", "her love for anna"},
					Difficulty:        domain.DifficultyHard,
				},
			},
		},
		"kristoff": {
			Character: domain.Character{ID: "kristoff", Name: "Kristoff", Difficulty: domain.DifficultyEasy},
			Questions: []domain.Question{
				{
					ID:                 "kristoff-1",
					CharacterID:        "kristoff",
					Kind:               domain.KindMultipleChoice,
					Prompt:             "What does Kristoff sell for a living?",
					Options:            []string{"Ice", "Carrots", "Firewood", "Fish"},
					CorrectAnswerIndex: 0,
					Difficulty:         domain.DifficultyEasy,
				},
				{
					ID:                "kristoff-2",
					CharacterID:       "kristoff",
					Kind:              domain.KindEssay,
					Prompt:            "Describe Kristoff's personality in two words.",
					CorrectAnswerText: "rendah hati",
					Difficulty:        domain.DifficultyMedium,
					Explanation:       "He is humble and loyal despite his gruff manner.",
				},
			},
		},
	}
}
