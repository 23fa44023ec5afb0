package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/logger"
	"github.com/iandry357/jobpulse/internal/posting"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <posting-id>",
	Short: "Generate the analysis report for one posting, or recalculate it under an instruction",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		enrichPosting(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().StringP("instruction", "i", "", "recalculate the existing report under this instruction")
}

// enrichPosting triggers one on-demand report generation or recalculation.
func enrichPosting(cmd *cobra.Command, arg string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting jobpulse", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	postingID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		logger.Fatal("posting id must be an integer", zap.String("argument", arg))
	}

	app, err := buildApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer app.Close()

	instruction := cmd.Flag("instruction").Value.String()

	var report *posting.EnrichmentReport
	if instruction != "" {
		report, err = app.enricher.Recalculate(ctx, postingID, instruction)
	} else {
		report, err = app.enricher.EnrichPosting(ctx, postingID)
	}
	if err != nil {
		logger.Fatal("enrichment failed", zap.Error(err))
	}

	logger.Info("report ready",
		zap.Int64("posting_id", postingID),
		zap.Float64("score", report.Score),
		zap.Int("recalculations_remaining", report.RecalcRemaining()),
	)
}
