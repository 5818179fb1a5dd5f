package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-website/app/profile"
	"github.com/vibast-solutions/ms-go-website/app/provider"
	"github.com/vibast-solutions/ms-go-website/config"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect transport profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the transport profiles in fallback order",
	Long:  "Print the transport profiles built from the environment or TRANSPORTS_FILE, in the order delivery tries them, with a validation result for each.",
	Args:  cobra.NoArgs,
	Run:   runProfilesList,
}

// init registers the profiles commands.
func init() {
	profilesCmd.AddCommand(profilesListCmd)
	rootCmd.AddCommand(profilesCmd)
}

func runProfilesList(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogger(cfg)

	registry, err := profile.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build transport registry: %v", err)
	}
	if err := writeProfiles(cmd.OutOrStdout(), registry); err != nil {
		log.Fatalf("Failed to print profiles: %v", err)
	}
}

func writeProfiles(out io.Writer, registry *profile.Registry) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tKIND\tTARGET\tSTATUS")
	for i, p := range registry.Profiles() {
		status := "ok"
		if err := provider.Validate(p); err != nil {
			status = err.Error()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, p.Name, p.Kind, p.String(), status)
	}
	return w.Flush()
}
