package cmd

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/config"
)

var (
	submissionsType  string
	submissionsLimit int64
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Inspect stored form submissions",
}

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print recent form submissions as JSON lines",
	Args:  cobra.NoArgs,
	Run:   runSubmissionsList,
}

// init registers the submissions commands.
func init() {
	submissionsListCmd.Flags().StringVar(&submissionsType, "type", "", "filter by type (contact or brochure)")
	submissionsListCmd.Flags().Int64Var(&submissionsLimit, "limit", 20, "maximum number of submissions")
	submissionsCmd.AddCommand(submissionsListCmd)
	rootCmd.AddCommand(submissionsCmd)
}

func runSubmissionsList(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogger(cfg)

	if cfg.MongoURI == "" {
		log.Fatal("MONGODB_URI is required to list submissions")
	}
	if submissionsType != "" && submissionsType != entity.SubmissionTypeContact && submissionsType != entity.SubmissionTypeBrochure {
		log.Fatalf("Unknown submission type %q", submissionsType)
	}

	svc, err := buildServices(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	submissions, err := svc.submissions.ListRecent(ctx, submissionsType, submissionsLimit)
	if err != nil {
		log.Fatalf("Failed to list submissions: %v", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, s := range submissions {
		if err := enc.Encode(s); err != nil {
			log.Fatalf("Failed to print submission: %v", err)
		}
	}
}
