package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-website/app/delivery"
	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/config"
)

var sendTestSubject string

var sendTestCmd = &cobra.Command{
	Use:   "send-test [recipient]",
	Short: "Deliver one test email and print the outcome",
	Long:  "Deliver a test email through the configured transport list and print the delivery outcome, including every attempt, as JSON.",
	Args:  cobra.ExactArgs(1),
	Run:   runSendTest,
}

// init registers the send-test command.
func init() {
	sendTestCmd.Flags().StringVar(&sendTestSubject, "subject", "", "subject of the test email")
	rootCmd.AddCommand(sendTestCmd)
}

func runSendTest(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogger(cfg)

	svc, err := buildServices(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer svc.Close()

	out, err := svc.email.Send(context.Background(), testEmail(cfg, args[0], sendTestSubject))
	if err != nil {
		log.Fatalf("Failed to send test email: %v", err)
	}
	if err := writeOutcome(cmd.OutOrStdout(), out); err != nil {
		log.Fatalf("Failed to print outcome: %v", err)
	}
	if !out.Success {
		log.Fatalf("Test email was not delivered: %s", out.Error)
	}
}

func testEmail(cfg *config.Config, recipient string, subject string) *entity.Message {
	if subject == "" {
		subject = fmt.Sprintf("Test email from %s", cfg.CompanyName)
	}
	sentAt := time.Now().UTC().Format(time.RFC1123)
	return &entity.Message{
		To:      []string{recipient},
		Subject: subject,
		HTML:    fmt.Sprintf("<p>This is a test email from %s, sent at %s.</p>", cfg.CompanyName, sentAt),
		Text:    fmt.Sprintf("This is a test email from %s, sent at %s.", cfg.CompanyName, sentAt),
		Tag:     "send-test",
	}
}

func writeOutcome(w io.Writer, out delivery.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
