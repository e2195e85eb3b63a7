package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/quillworks/redraft/internal/batch"
	"github.com/quillworks/redraft/internal/config"
	"github.com/quillworks/redraft/internal/core"
	"github.com/quillworks/redraft/internal/detect"
	"github.com/quillworks/redraft/internal/llm"
	"github.com/quillworks/redraft/internal/rewrite"
	"github.com/quillworks/redraft/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	essayPath := flag.String("essay", "essay.txt", "document to rewrite")
	promptPath := flag.String("prompt", "prompt.txt", "base system prompt")
	configPath := flag.String("config", "", "optional TOML config file")
	listen := flag.String("listen", "", "optional address for the progress endpoint")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	essay, err := os.ReadFile(*essayPath)
	if err != nil {
		return fmt.Errorf("failed to read essay: %w", err)
	}
	prompt, err := os.ReadFile(*promptPath)
	if err != nil {
		return fmt.Errorf("failed to read prompt: %w", err)
	}
	text := string(essay)

	// Completion budget: the document's word count plus breathing room, so a
	// rewrite can never run much longer than its source.
	maxTokens := int(float64(len(strings.Fields(text)))*1.3 + 20)

	ctx := context.Background()

	providers, err := buildProviders(cfg.Detect.Providers)
	if err != nil {
		return err
	}
	aggregator := detect.NewAggregator(providers...)

	rewriter, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm client: %w", err)
	}
	if closer, ok := rewriter.(io.Closer); ok {
		defer closer.Close()
	}

	generator := rewrite.NewGenerator(rewriter, rewrite.Options{
		BasePrompt: string(prompt),
		MaxTokens:  maxTokens,
		Batch: batch.Options{
			Size:   cfg.Batch.Size,
			Pacing: time.Duration(cfg.Batch.PacingSeconds * float64(time.Second)),
		},
	})

	engine := core.NewEngine(aggregator, generator, core.Params{
		Candidates:   cfg.Search.Candidates,
		TargetScore:  cfg.Search.TargetScore,
		MaxRollbacks: cfg.Search.MaxRollbacks,
		MaxRounds:    cfg.Search.MaxRounds,
	})

	var progress *server.Server
	if *listen != "" {
		progress = server.NewServer(0)
		engine.OnRound(progress.Observe)
		router := progress.SetupRouter()
		go func() {
			if err := router.Run(*listen); err != nil {
				log.Printf("progress server stopped: %v", err)
			}
		}()
	}

	outcome, err := engine.Run(ctx, text)
	if err != nil {
		return err
	}
	if progress != nil {
		progress.Finish(outcome)
	}

	fmt.Printf("\nFinal score: %.1f%% (from round %d, %s)\n",
		outcome.FinalScore, outcome.FinalRound, outcome.Reason)
	fmt.Println("\nScore progression:")
	for _, entry := range outcome.Rounds {
		status := "rolled back"
		if entry.Accepted {
			status = "accepted"
		}
		fmt.Printf("  Round %d: %.1f%% %s\n", entry.Round, entry.BestCandidateScore, status)
	}
	fmt.Printf("\nFinal Result:\n%s\n", outcome.FinalText)
	return nil
}

func buildProviders(names []string) ([]detect.Provider, error) {
	providers := make([]detect.Provider, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(name) {
		case "zerogpt":
			providers = append(providers, detect.NewZeroGPT())
		case "originality":
			providers = append(providers, detect.NewOriginality())
		default:
			return nil, fmt.Errorf("unknown detection provider: %s", name)
		}
	}
	return providers, nil
}
