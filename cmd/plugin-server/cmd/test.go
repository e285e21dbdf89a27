package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmitchellscott/stationmaster-plugins/pkg/config"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/server"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/types"
)

var testCmd = &cobra.Command{
	Use:   "test <plugin>",
	Short: "Execute one plugin from the command line",
	Long: `Run a single plugin with settings supplied as JSON and print the
resulting locals. Useful for verifying credentials and settings without
a running server.

Examples:
  # Run the calendar plugin
  plugin-server test ics_calendar --settings '{"ics_url":"https://example.com/cal.ics"}'

  # Run with an explicit user timezone
  plugin-server test tempest --settings '{"station_id":"1234"}' --tz America/New_York`,
	Args: cobra.ExactArgs(1),
	RunE: runTest,
}

var (
	testSettings string
	testTZ       string
	testLocale   string
)

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVarP(&testSettings, "settings", "s", "{}", "Plugin settings as JSON")
	testCmd.Flags().StringVar(&testTZ, "tz", "", "User timezone (IANA name)")
	testCmd.Flags().StringVar(&testLocale, "locale", "", "User locale code")
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var rawSettings map[string]any
	if err := json.Unmarshal([]byte(testSettings), &rawSettings); err != nil {
		return fmt.Errorf("parsing settings: %w", err)
	}

	components, err := server.NewBuilder(log, cfg).Components()
	if err != nil {
		return fmt.Errorf("building components: %w", err)
	}

	execCtx := types.ExecutionContext{
		User: types.User{
			ID:           "cli",
			TimeZoneIANA: testTZ,
			Locale:       testLocale,
		},
	}

	projected := components.Projector.Project(ctx, rawSettings, execCtx)

	result, err := components.Executor.Execute(ctx, name, projected, execCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "execution failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	fmt.Println(string(out))

	return nil
}
