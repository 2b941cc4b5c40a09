package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmallory/revu/internal/models"
	"github.com/jmallory/revu/internal/output"
	"github.com/jmallory/revu/internal/review"
	"github.com/jmallory/revu/internal/store"
)

var (
	sessionsUser  string
	sessionsLimit int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse review session history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListRun(cmd.Context())
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent review sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListRun(cmd.Context())
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session with its review result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsShowRun(cmd.Context(), args[0])
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsDeleteRun(cmd.Context(), args[0])
	},
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsUser, "user", "", "Filter by user id")
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum sessions to list")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func sessionsListRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sessions, err := s.ListSessions(ctx, store.SessionListFilter{
		UserID: sessionsUser,
		Limit:  sessionsLimit,
	})
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		ui.Info("No review sessions")
		return nil
	}

	table := ui.Table([]string{"ID", "USER", "LANGUAGE", "PROVIDER", "CREATED"})
	for _, sess := range sessions {
		_ = table.Append([]string{
			sess.ID,
			sess.UserID,
			sess.Language,
			sess.Provider,
			sess.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return table.Render()
}

func sessionsShowRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sess, err := s.GetSessionDetail(ctx, id)
	if err != nil {
		return err
	}

	ui.Info("Session %s  %s  %s  %s", sess.ID, output.Cyan(sess.Language), sess.Provider, sess.CreatedAt.Format("2006-01-02 15:04"))

	for _, msg := range sess.Messages {
		if msg.Role != models.RoleAssistant {
			continue
		}
		var result review.Result
		if err := json.Unmarshal(msg.Content, &result); err == nil && result.Summary != "" {
			ui.RenderResult(&result)
			continue
		}
		// Error records and other non-result content print raw.
		var errRecord struct {
			Type string `json:"type"`
			Raw  string `json:"raw"`
		}
		if err := json.Unmarshal(msg.Content, &errRecord); err == nil && errRecord.Type == "error" {
			ui.Error("review failed; raw capture:")
			fmt.Fprintln(ui.Out, errRecord.Raw)
		}
	}
	return nil
}

func sessionsDeleteRun(ctx context.Context, id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	if err := s.DeleteSession(ctx, id); err != nil {
		return err
	}
	ui.Success("Deleted session %s", id)
	return nil
}
