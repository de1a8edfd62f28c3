package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonoscribe/sonoscribe/pkg/cli"
)

var meetingsOutput string

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "Browse saved meeting records",
}

var meetingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List meetings, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openMeetings(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		all, err := store.LoadAll(cmd.Context())
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println(styles.Dim.Render("no meetings recorded"))
			return nil
		}
		for _, m := range all {
			fmt.Printf("%s %s %s %s\n",
				styles.Dim.Render(m.StartedAt.Format("2006-01-02 15:04")),
				styles.Label.Render(m.Title),
				cli.FormatDuration(m.Duration),
				styles.Dim.Render(m.ID))
		}
		return nil
	},
}

var meetingsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one meeting with its segments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openMeetings(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		m, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if meetingsOutput != "" {
			return cli.Output(m, cli.OutputOptions{Format: cli.OutputFormat(meetingsOutput)})
		}

		fmt.Printf("%s  %s  %s\n", styles.Title.Render(m.Title),
			m.StartedAt.Format("2006-01-02 15:04"), cli.FormatDuration(m.Duration))
		for _, seg := range m.Segments {
			speaker := seg.SpeakerName
			if speaker == "" {
				speaker = "?"
			}
			fmt.Printf("  %s %s %s\n", styles.Dim.Render(cli.FormatOffset(seg.Offset)),
				styles.Label.Render(speaker+":"), seg.Text)
		}
		return nil
	},
}

var meetingsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a meeting record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, closeStore, err := openMeetings(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		return store.Delete(cmd.Context(), args[0])
	},
}

func init() {
	meetingsShowCmd.Flags().StringVarP(&meetingsOutput, "output", "o", "", "structured output format (yaml or json)")
	meetingsCmd.AddCommand(meetingsListCmd, meetingsShowCmd, meetingsRmCmd)
	rootCmd.AddCommand(meetingsCmd)
}
