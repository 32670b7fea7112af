package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	eventadapter "github.com/Collinsarusei/giftme-sub000/internal/adapters/events"
	"github.com/Collinsarusei/giftme-sub000/internal/adapters/security"
	"github.com/Collinsarusei/giftme-sub000/internal/app/bootstrap"
	"github.com/Collinsarusei/giftme-sub000/internal/application"
	"github.com/Collinsarusei/giftme-sub000/internal/ports"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	configPath string
	operatorID string
)

func openLedger(ctx context.Context, migrate bool) (*bootstrap.Ledger, error) {
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return bootstrap.OpenLedger(ctx, cfg, bootstrap.NewLogger(cfg, os.Stderr), migrate)
}

func operatorActor() application.Actor {
	id := strings.TrimSpace(operatorID)
	if id == "" {
		id = strings.TrimSpace(os.Getenv("USER"))
	}
	if id == "" {
		id = "ledgerctl"
	}
	return application.Actor{
		SubjectID: id,
		Role:      application.RoleOperator,
		RequestID: uuid.NewString(),
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ledger schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := openLedger(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer ledger.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "ledger schema is up to date")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire every active event whose expiry has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := openLedger(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer ledger.Close()
			expired, err := ledger.Service.ExpireEvents(cmd.Context())
			if err != nil {
				return fmt.Errorf("expire events: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d events\n", expired)
			return nil
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [event-id]",
		Short: "Show an event's raised, eligible, in-flight and withdrawn totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openLedger(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer ledger.Close()
			balance, err := ledger.Service.GetEventBalance(cmd.Context(), operatorActor(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), balance)
		},
	}
}

func releaseCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "release [payout-id]",
		Short: "Resolve a payout whose outcome never arrived as failed",
		Long: `Marks a reserved, accepted or unknown payout as failed and returns its
records to the withdrawable pool. Confirm with the gateway that the transfer
did not move money before releasing it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(reason) == "" {
				return errors.New("--reason is required")
			}
			ledger, err := openLedger(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer ledger.Close()
			payout, err := ledger.Service.ReleasePayout(cmd.Context(), operatorActor(), args[0], reason)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), payout)
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "why the payout is being released")
	return cmd
}

func outboxCmd() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "outbox-flush",
		Short: "Publish pending outbox records once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ledger, err := openLedger(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer ledger.Close()
			publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(ledger.Logger))
			if len(ledger.Config.KafkaBrokers) > 0 {
				kafkaPublisher, err := eventadapter.NewKafkaPublisher(ledger.Config.KafkaBrokers, ledger.Config.TopicByEvent())
				if err != nil {
					return err
				}
				defer kafkaPublisher.Close()
				publisher = kafkaPublisher
			}
			worker := eventadapter.NewOutboxWorker(ledger.Logger, ledger.Repos.Outbox, publisher, time.Second, batch)
			sent, err := worker.ProcessOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d outbox records\n", sent)
			return nil
		},
	}
	cmd.Flags().IntVarP(&batch, "batch", "n", 100, "maximum records to publish")
	return cmd
}

func hashKeyCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-key [operator-id]",
		Short: "Hash an operator secret read from stdin into an OPERATOR_KEYS entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			secret = strings.TrimSpace(secret)
			if secret == "" {
				return errors.New("empty secret on stdin")
			}
			hash, err := security.HashOperatorSecret(secret, cost)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", args[0], hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}
