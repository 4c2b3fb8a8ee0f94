// Command scan runs the email checks over a directory of .eml files and
// prints one JSON report per message.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"scamlens/internal/config"
	"scamlens/internal/domain/models"
	"scamlens/internal/domain/services/ai"
	"scamlens/internal/domain/services/rules"
	"scamlens/internal/domain/services/scoring"
	"scamlens/internal/mailparse"
	"scamlens/pkg/logger"
)

type report struct {
	File           string               `json:"file"`
	Sender         string               `json:"sender"`
	Subject        string               `json:"subject,omitempty"`
	RedFlags       models.RedFlagReport `json:"redFlags"`
	Factors        models.FactorSet     `json:"factors"`
	FraudScore     models.FraudScore    `json:"fraudScore"`
	ScamLikelihood string               `json:"scamLikelihood,omitempty"`
	Analysis       string               `json:"detailedAnalysis,omitempty"`
	Error          string               `json:"error,omitempty"`
}

func main() {
	dir := flag.String("dir", ".", "directory holding .eml files")
	tierName := flag.String("tier", "paid", "tier whose red-flag rules apply")
	useOracle := flag.Bool("ai", false, "also ask the configured oracle for an analysis")
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     "console",
		TimeFormat: cfg.Logger.TimeFormat,
	}, os.Stderr)

	tier, ok := models.ParseTier(*tierName)
	if !ok {
		log.Fatal().Str("tier", *tierName).Msg("unknown tier")
	}

	messages, err := mailparse.LoadDir(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("failed to load messages")
	}

	ctx := context.Background()
	var analyst *ai.Analyst
	if *useOracle {
		oracle, err := ai.NewOracle(ctx, cfg.Oracle, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create oracle")
		}
		defer oracle.Close()
		analyst = ai.NewAnalyst(oracle, cfg.Oracle.Timeout, log)
	}

	detector := rules.NewDetector()
	enc := json.NewEncoder(os.Stdout)
	for _, m := range messages {
		text := m.ScanText()
		r := report{
			File:     m.ID,
			Sender:   m.Sender,
			Subject:  m.Subject,
			RedFlags: detector.Detect(text, tier),
			Factors:  rules.EmailFactors(text, m.Sender),
		}
		r.FraudScore = scoring.FraudScore(r.Factors)

		if analyst != nil {
			sections, _, err := analyst.AnalyzeEmail(ctx, text, m.Sender)
			if err != nil {
				r.Error = err.Error()
			} else {
				r.ScamLikelihood = sections.ScamLikelihood
				r.Analysis = sections.DetailedAnalysis
			}
		}

		if err := enc.Encode(r); err != nil {
			log.Fatal().Err(err).Msg("failed to write report")
		}
	}
	log.Info().Int("messages", len(messages)).Msg("scan complete")
}
