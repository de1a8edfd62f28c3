package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sonoscribe/sonoscribe/pkg/cli"
	"github.com/sonoscribe/sonoscribe/pkg/engine"
	"github.com/sonoscribe/sonoscribe/pkg/voiceprint"
)

var speakersCmd = &cobra.Command{
	Use:   "speakers",
	Short: "Manage enrolled speaker profiles",
}

var speakersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled speakers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		profiles := reg.All()
		if len(profiles) == 0 {
			fmt.Println(styles.Dim.Render("no speakers enrolled"))
			return nil
		}
		for _, p := range profiles {
			line := fmt.Sprintf("%s %s", cli.Swatch(p.Color), styles.Label.Render(p.Name))
			if p.Role != "" {
				line += " " + p.Role
			}
			if p.Group != "" {
				line += " (" + p.Group + ")"
			}
			line += " " + styles.Dim.Render(p.ID)
			fmt.Println(line)
		}
		return nil
	},
}

var (
	renameName  string
	renameRole  string
	renameGroup string
)

var speakersRenameCmd = &cobra.Command{
	Use:   "rename <id>",
	Short: "Edit a speaker's name, role or group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		return reg.Update(args[0], func(p *voiceprint.Profile) {
			if cmd.Flags().Changed("name") {
				p.Name = renameName
			}
			if cmd.Flags().Changed("role") {
				p.Role = renameRole
			}
			if cmd.Flags().Changed("group") {
				p.Group = renameGroup
			}
		})
	},
}

var reEnrollFile string

var speakersReEnrollCmd = &cobra.Command{
	Use:   "re-enroll <id>",
	Short: "Replace a speaker's voice embedding from a new sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := openRegistry(cfg)
		if err != nil {
			return err
		}

		samples, err := enrollAudio(cfg.Microphone, reEnrollFile, enrollSeconds)
		if err != nil {
			return err
		}

		diar := engine.NewWSDiarizer(cfg.Engines.DiarizerURL)
		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()
		p, err := voiceprint.NewEnroller(reg, diar).ReEnroll(ctx, args[0], samples)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s updated\n", cli.Swatch(p.Color), styles.Label.Render(p.Name))
		return nil
	},
}

var speakersRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a speaker profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		return reg.Delete(args[0])
	},
}

func init() {
	speakersRenameCmd.Flags().StringVar(&renameName, "name", "", "new display name")
	speakersRenameCmd.Flags().StringVar(&renameRole, "role", "", "new role")
	speakersRenameCmd.Flags().StringVar(&renameGroup, "group", "", "new group")
	speakersReEnrollCmd.Flags().StringVar(&reEnrollFile, "file", "", "WAV file with the new sample (default: record from mic)")
	speakersCmd.AddCommand(speakersListCmd, speakersRenameCmd, speakersReEnrollCmd, speakersRmCmd)
	rootCmd.AddCommand(speakersCmd)
}
