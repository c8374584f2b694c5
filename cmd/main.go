package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/bmeric/docquery/internal/models"
	"github.com/bmeric/docquery/internal/types"
	"github.com/bmeric/docquery/pkg/answer"
	cfgPkg "github.com/bmeric/docquery/pkg/config"
	"github.com/bmeric/docquery/pkg/extractor"
	"github.com/bmeric/docquery/pkg/fetcher"
	"github.com/bmeric/docquery/pkg/ingest"
	"github.com/bmeric/docquery/pkg/llm"
	"github.com/bmeric/docquery/pkg/store"
	"github.com/bmeric/docquery/server"
)

type Flags struct {
	ConfigPath string
	Serve      bool
	Port       string
	DBUrl      string
	IngestID   int64
	Source     string
	Query      string
	DocID      int64
	TopK       int
	DeleteID   int64
}

func main() {
	_ = godotenv.Load()

	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.BoolVar(&flags.Serve, "serve", false, "Run the HTTP server")
	flag.StringVar(&flags.Port, "port", "", "HTTP server port")
	flag.StringVar(&flags.DBUrl, "db-url", "", "PostgreSQL connection string")
	flag.Int64Var(&flags.IngestID, "ingest", 0, "Document ID to ingest (requires -source)")
	flag.StringVar(&flags.Source, "source", "", "Source locator: file://path, minio://bucket/key, or URL")
	flag.StringVar(&flags.Query, "query", "", "Ask a single question and exit")
	flag.Int64Var(&flags.DocID, "doc", 0, "Restrict the question to one document ID")
	flag.IntVar(&flags.TopK, "top-k", answer.DefaultTopK, "Maximum chunks to retrieve")
	flag.Int64Var(&flags.DeleteID, "delete", 0, "Delete a document and its pages and chunks")
	flag.Parse()

	return flags
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// resolveCapabilities probes the optional backends once; components receive
// the result instead of re-checking availability per call.
func resolveCapabilities(config *cfgPkg.Config) types.Capabilities {
	return types.Capabilities{
		OCR:      config.Extractor.EnableOCR && extractor.Available(),
		Database: config.Database.URL != "",
		Answerer: config.LLM.Provider == "ollama" || config.LLM.APIKey != "",
	}
}

func run(flags Flags) error {
	ctx := context.Background()

	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if flags.DBUrl != "" {
		config.Database.URL = flags.DBUrl
	}
	if flags.Port != "" {
		config.Server.Port = flags.Port
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	caps := resolveCapabilities(config)

	f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{
		Endpoint:  config.Storage.Endpoint,
		AccessKey: config.Storage.AccessKey,
		SecretKey: config.Storage.SecretKey,
		UseSSL:    config.Storage.UseSSL,
		RateLimit: config.Fetcher.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %v", err)
	}

	var ocr extractor.OCREngine
	if caps.OCR {
		ocr = extractor.NewTesseract()
	}
	ext := extractor.NewWithConfig(extractor.ExtractorConfig{
		DPI:             config.Extractor.OCRDPI,
		SparseTextLimit: config.Extractor.SparseTextLimit,
	}, ocr)

	var st *store.Store
	if caps.Database {
		st, err = store.NewWithConfig(ctx, store.StoreConfig{
			ConnString: config.Database.URL,
			BatchSize:  config.Database.BatchSize,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize store: %v", err)
		}
		defer st.Close()
	}

	var generator types.Generator
	if caps.Answerer {
		engine, err := llm.NewWithConfig(ctx, llm.AnswerConfig{
			Provider:    config.LLM.Provider,
			Model:       config.LLM.Model,
			APIKey:      config.LLM.APIKey,
			BaseURL:     config.LLM.BaseURL,
			Temperature: config.LLM.Temperature,
			MaxTokens:   config.LLM.MaxTokens,
		})
		if err != nil {
			color.Yellow("answer engine unavailable: %v", err)
			caps.Answerer = false
		} else {
			generator = engine
		}
	}

	orchestrator := ingest.New(f, ext, st, caps, ingest.Config{
		ChunkSize:    config.Chunker.ChunkSize,
		ChunkOverlap: config.Chunker.ChunkOverlap,
	})
	answers := answer.New(st, generator, caps)

	switch {
	case flags.Serve:
		srv := server.New(server.Config{Port: config.Server.Port}, orchestrator, answers, caps)
		return srv.Run()

	case flags.DeleteID != 0:
		if !caps.Database {
			return fmt.Errorf("delete requires a configured database")
		}
		if err := st.DeleteDocument(ctx, flags.DeleteID); err != nil {
			return err
		}
		color.Green("✓ Deleted document %d with its pages and chunks", flags.DeleteID)
		return nil

	case flags.IngestID != 0:
		if flags.Source == "" {
			return fmt.Errorf("-ingest requires -source")
		}
		return runIngest(ctx, orchestrator, flags.IngestID, flags.Source)

	case flags.Query != "":
		return runQuery(ctx, answers, flags.Query, flags.DocID, flags.TopK)

	default:
		return runInteractive(ctx, answers, flags.TopK)
	}
}

func runIngest(ctx context.Context, orchestrator *ingest.Orchestrator, documentID int64, source string) error {
	spinner := getSpinner(fmt.Sprintf("Ingesting document %d...", documentID))

	pages, err := orchestrator.Ingest(ctx, documentID, source)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	color.Green("✓ Processed %d pages from %s", pages, source)
	return nil
}

func runQuery(ctx context.Context, answers *answer.Service, text string, docID int64, topK int) error {
	query := models.Query{Text: text, TopK: topK}
	if docID != 0 {
		query.DocumentID = &docID
	}

	spinner := getSpinner("Searching documents...")
	result, err := answers.Answer(ctx, query)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		return err
	}

	printAnswer(result)
	return nil
}

func runInteractive(ctx context.Context, answers *answer.Service, topK int) error {
	color.Cyan("\nAsk questions about your documents (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		text := scanner.Text()
		if strings.ToLower(text) == "exit" {
			break
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		spinner := getSpinner("Searching documents...")
		result, err := answers.Answer(ctx, models.Query{Text: text, TopK: topK})
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			color.Red("Error: %v", err)
			continue
		}

		printAnswer(result)
	}

	return scanner.Err()
}

func printAnswer(result models.Answer) {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	assistantPrompt("\nAssistant: %s\n", result.Text)

	if len(result.Citations) > 0 {
		fmt.Println()
		for _, c := range result.Citations {
			fmt.Printf("  [Document %d, Page %d] score %.1f\n", c.DocumentID, c.Page, c.Score)
		}
	}
}
