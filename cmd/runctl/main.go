package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"example.com/runtracker/internal/client"
	"example.com/runtracker/internal/format"
)

const defaultServerAddr = "http://127.0.0.1:8080"

func main() {
	rootCmd := &cobra.Command{
		Use:          "runctl",
		Short:        "Terminal client for the run tracker chat gateway",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("addr", defaultServerAddr, "Gateway base URL")
	rootCmd.PersistentFlags().String("conversation", uuid.NewString(), "Conversation ID to talk in")
	rootCmd.PersistentFlags().String("name", os.Getenv("USER"), "Sender name shown in the greeting")
	rootCmd.PersistentFlags().String("download-dir", ".", "Directory that receives exported files")

	rootCmd.AddCommand(
		chatCmd(),
		sendCmd(),
		historyCmd(),
		statsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type session struct {
	client       *client.Client
	conversation string
	name         string
	downloadDir  string
}

func sessionFrom(cmd *cobra.Command) session {
	flags := cmd.Flags()
	addr, _ := flags.GetString("addr")
	conversation, _ := flags.GetString("conversation")
	name, _ := flags.GetString("name")
	downloadDir, _ := flags.GetString("download-dir")
	return session{
		client:       client.New(addr),
		conversation: conversation,
		name:         name,
		downloadDir:  downloadDir,
	}
}

func (s session) send(ctx context.Context, text string) error {
	replies, err := s.client.Send(ctx, s.conversation, s.name, text)
	if err != nil {
		return err
	}
	_, err = client.RenderReplies(os.Stdout, replies, s.downloadDir)
	return err
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation (Ctrl-D to quit)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			ctx := cmd.Context()
			fmt.Fprintf(os.Stderr, "conversation %s\n", s.conversation)

			if err := s.send(ctx, "/start"); err != nil {
				return err
			}

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					fmt.Println()
					return scanner.Err()
				}
				text := strings.TrimSpace(scanner.Text())
				if text == "" {
					continue
				}
				if err := s.send(ctx, text); err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				}
			}
		},
	}
}

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>",
		Short: "Send a single message and print the replies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sessionFrom(cmd).send(cmd.Context(), strings.Join(args, " "))
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := sessionFrom(cmd).client.Runs(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}
			return client.RenderRuns(os.Stdout, runs)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the statistics summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := sessionFrom(cmd).client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Runs:      %d\n", stats.RunCount)
			fmt.Printf("Total:     %s km in %d min\n", format.FormatKm(stats.TotalKm), stats.TotalMinutes)
			fmt.Printf("Avg pace:  %s min/km\n", stats.AvgPace)
			fmt.Printf("Today:     %s km\n", format.FormatKm(stats.TodayKm))
			fmt.Printf("Week:      %s km of %s km (%d%%), %s to %s\n",
				format.FormatKm(stats.WeekKm), format.FormatNumber(stats.WeeklyGoalKm), stats.WeekProgressPc, stats.WeekStart, stats.WeekEnd)
			fmt.Printf("Month:     %s km\n", format.FormatKm(stats.MonthKm))
			return nil
		},
	}
}
