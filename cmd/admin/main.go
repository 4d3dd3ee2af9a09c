// Package main provides moderation and account utilities for Huellas operators.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"huellas/internal/bootstrap"
	"huellas/internal/cache"
	"huellas/internal/config"
	"huellas/internal/models"
	"huellas/internal/notifications"
	"huellas/internal/repository"
	"huellas/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Huellas operator tools",
		SilenceUsage: true,
	}
	root.AddCommand(
		newPromoteCmd(true),
		newPromoteCmd(false),
		newListAdminsCmd(),
		newSuspendCmd(),
		newPurgeExpiredCmd(),
		newWatchCmd(),
	)
	return root
}

// withRuntime loads the configuration and opens the connections for one command.
func withRuntime(cmd *cobra.Command, opts bootstrap.Options, fn func(ctx context.Context, rt *bootstrap.Runtime) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	rt, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func newPromoteCmd(admin bool) *cobra.Command {
	use, short := "promote <email>", "Grant admin rights to a user"
	if !admin {
		use, short = "demote <email>", "Revoke admin rights from a user"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, bootstrap.Options{SkipRedis: true, SkipNATS: true}, func(ctx context.Context, rt *bootstrap.Runtime) error {
				user, err := repository.NewUserRepository(rt.DB).SetAdmin(ctx, args[0], admin)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d) admin=%t\n", user.Email, user.ID, user.IsAdmin)
				return nil
			})
		},
	}
}

func newListAdminsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List every admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, bootstrap.Options{SkipRedis: true, SkipNATS: true}, func(ctx context.Context, rt *bootstrap.Runtime) error {
				admins, err := repository.NewUserRepository(rt.DB).ListAdmins(ctx)
				if err != nil {
					return err
				}
				if len(admins) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No admins found.")
					return nil
				}
				for _, u := range admins {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", u.ID, u.Email, u.CreatedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newSuspendCmd() *cobra.Command {
	var reason, code string
	var by uint
	cmd := &cobra.Command{
		Use:   "suspend <kind> <post_id>",
		Short: "Suspend a post and close its open reports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseKind(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, bootstrap.Options{}, func(ctx context.Context, rt *bootstrap.Runtime) error {
				suspensions := repository.NewSuspensionRepository(rt.DB)
				moderation := service.NewModerationService(
					repository.NewPosts(rt.DB, suspensions),
					repository.NewReportRepository(rt.DB),
					suspensions,
					notifications.NewNotifier(rt.Redis),
					rt.Publisher,
					cache.NewStore(rt.Redis),
				)
				entry, err := moderation.SuspendPost(ctx, kind, args[1], reason, code, by)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "suspended %s %s (log %d)\n", entry.PostType, entry.OriginalPostID, entry.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the suspension log")
	cmd.Flags().StringVar(&code, "code", "", "optional reason code, e.g. spam")
	cmd.Flags().UintVar(&by, "by", 0, "id of the admin performing the suspension")
	_ = cmd.MarkFlagRequired("reason")
	_ = cmd.MarkFlagRequired("by")
	return cmd
}

func newPurgeExpiredCmd() *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "purge-expired",
		Short: "Delete lost and reported posts past their expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, bootstrap.Options{SkipNATS: true}, func(ctx context.Context, rt *bootstrap.Runtime) error {
				posts := repository.NewPosts(rt.DB, nil)
				store := cache.NewStore(rt.Redis)
				cutoff := time.Now().Add(-grace)
				for _, kind := range models.PostKinds {
					n, err := posts.For(kind).PurgeExpired(ctx, cutoff)
					if err != nil {
						return fmt.Errorf("purge %s: %w", kind, err)
					}
					if n > 0 {
						store.BumpVersion(ctx, cache.ListingVersionKey(string(kind)))
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d removed\n", kind, n)
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 0, "keep posts that expired less than this long ago")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream moderation events as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, bootstrap.Options{SkipNATS: true}, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if rt.Redis == nil {
					return fmt.Errorf("watch needs REDIS_URL")
				}
				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				out := cmd.OutOrStdout()
				err := notifications.NewNotifier(rt.Redis).StartAdminSubscriber(ctx, func(ev notifications.AdminEvent) {
					fmt.Fprintf(out, "%s\t%s\t%s %s\t%s\n", ev.At.Format(time.RFC3339), ev.Type, ev.PostType, ev.PostID, ev.Reason)
				})
				if err != nil {
					return err
				}
				log.Printf("Listening on %s, Ctrl+C to stop", notifications.AdminChannel)
				<-ctx.Done()
				return nil
			})
		},
	}
}
