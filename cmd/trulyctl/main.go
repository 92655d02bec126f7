// Trulyctl is an operator utility for trulybot.
//
// It runs the pure parts of the pipeline offline: lead extraction over
// sample text, subscription access evaluation, token minting for the
// dashboard API, and chunking previews.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/documents"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/leads"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/subscription"
)

func main() {
	root := &cobra.Command{
		Use:   "trulyctl",
		Short: "Operator utilities for trulybot",
	}
	root.AddCommand(extractCmd(), accessCmd(), tokenCmd(), chunkCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [text]",
		Short: "Run lead extraction over a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signals := leads.Extract(strings.Join(args, " "))
			return printJSON(cmd, map[string]any{
				"email":           signals.Email,
				"phone":           signals.Phone,
				"intentKeywords":  signals.IntentKeywords,
				"followUpRequest": signals.FollowUpRequest,
			})
		},
	}
}

func accessCmd() *cobra.Command {
	var (
		status    string
		tier      string
		endsIn    time.Duration
		trialIn   time.Duration
		usedTrial bool
		customer  string
	)
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Evaluate subscription access for a hypothetical profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			profile := &subscription.Profile{
				SubscriptionStatus: status,
				SubscriptionTier:   tier,
				HasUsedTrial:       usedTrial,
				BillingCustomerID:  customer,
			}
			if endsIn != 0 {
				t := now.Add(endsIn)
				profile.SubscriptionEndsAt = &t
			}
			if trialIn != 0 {
				t := now.Add(trialIn)
				profile.TrialEndsAt = &t
			}
			return printJSON(cmd, subscription.CalculateAccess(profile, now))
		},
	}
	cmd.Flags().StringVar(&status, "status", "none", "subscription status")
	cmd.Flags().StringVar(&tier, "tier", "free", "stored tier")
	cmd.Flags().DurationVar(&endsIn, "ends-in", 0, "subscription end relative to now (negative for past)")
	cmd.Flags().DurationVar(&trialIn, "trial-ends-in", 0, "trial end relative to now (negative for past)")
	cmd.Flags().BoolVar(&usedTrial, "used-trial", false, "trial already consumed")
	cmd.Flags().StringVar(&customer, "billing-customer", "", "billing customer reference")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		key      string
		userID   string
		tenantID string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a dashboard API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" || userID == "" || tenantID == "" {
				return fmt.Errorf("--key, --user, and --tenant are required")
			}
			now := time.Now()
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub":       userID,
				"tenant_id": tenantID,
				"iat":       now.Unix(),
				"exp":       now.Add(ttl).Unix(),
			})
			signed, err := token.SignedString([]byte(key))
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}
			cmd.Println(signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "signing key")
	cmd.Flags().StringVar(&userID, "user", "", "user id (sub claim)")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "workspace id")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func chunkCmd() *cobra.Command {
	var (
		words   int
		overlap int
	)
	cmd := &cobra.Command{
		Use:   "chunk [file]",
		Short: "Preview how a document would be chunked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			chunks := documents.NewChunker(words, overlap).Chunk(string(content))
			for i, c := range chunks {
				cmd.Printf("--- chunk %d (%d words)\n%s\n", i, len(strings.Fields(c)), c)
			}
			cmd.Printf("total: %d chunks\n", len(chunks))
			return nil
		},
	}
	cmd.Flags().IntVar(&words, "words", 200, "words per chunk")
	cmd.Flags().IntVar(&overlap, "overlap", 20, "overlapping words between chunks")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
