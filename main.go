package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/workmate-core-poc/server/internal/agent/graph"
	"github.com/workmate-core-poc/server/internal/agent/model"
	"github.com/workmate-core-poc/server/internal/agent/repo"
	pkgredis "github.com/workmate-core-poc/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the orchestration
// example, sourced from environment variables (loaded from .env for local
// runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Agent        model.AgentModelConfig
	Planner      model.PlannerModelConfig
	Persona      model.PersonaConfig
	Orchestrator model.OrchestratorConfig
	Conversation model.ConversationConfig
	Sanitizer    model.SanitizerConfig
	Cache        model.CacheConfig
}

func main() {
	ctx := context.Background()
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	fmt.Println("Connected to Redis successfully")

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	cfg := graph.Config{
		APIKey:           envCfg.APIKey,
		BaseURL:          envCfg.BaseURL,
		AgentModel:       envCfg.Agent,
		PlannerModel:     envCfg.Planner,
		Persona:          envCfg.Persona,
		Orchestrator:     envCfg.Orchestrator,
		Conversation:     envCfg.Conversation,
		Sanitizer:        envCfg.Sanitizer,
		Cache:            envCfg.Cache,
		ConversationRepo: repo.NewRedisConversationRepository(rdb, ttl),
		ResponseCache:    repo.NewRedisResponseCache(rdb),
	}

	runner, err := graph.BuildResponseGraph(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	testQueries := []struct {
		description string
		query       string
	}{
		{
			description: "Conversational opener",
			query:       "Hey, what can you help me with?",
		},
		{
			description: "Simple internal lookup",
			query:       "What documents do we have about the Q3 roadmap?",
		},
		{
			description: "Deep multi-source analysis",
			query:       "Compare our Q3 Roadmap with the Pricing Experiment Results and summarize what we should change.",
		},
		{
			description: "Follow-up with thanks",
			query:       "Thanks, that's exactly what I needed!",
		},
	}

	conversationID := "demo-conversation-001"

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Query: %q\n", test.query)
		fmt.Println("Processing...")

		response, err := runner.Invoke(ctx, model.TurnInput{
			ConversationID: conversationID,
			Query:          test.query,
		})
		if err != nil {
			log.Fatalf("Failed to invoke graph for test %d: %v", i+1, err)
		}

		fmt.Printf("Response %d: %s\n", i+1, response)
		fmt.Println("------------------------------------------------")

		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("All turns completed")
}
