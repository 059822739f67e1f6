package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/fcgi"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/forumkit/forumadmin/pkg/config"
	"github.com/forumkit/forumadmin/pkg/events"
	"github.com/forumkit/forumadmin/pkg/faplugin"
	"github.com/forumkit/forumadmin/pkg/fasql"
	"github.com/forumkit/forumadmin/pkg/fautil"
	"github.com/forumkit/forumadmin/pkg/manage"
	"github.com/forumkit/forumadmin/pkg/server"
	"github.com/forumkit/forumadmin/pkg/server/serverutil"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the administration server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer faplugin.ClosePlugins()

	systemCritical := config.GetSystemCriticalConfig()
	fautil.LogInfo().Str("version", versionStr).Msg("Starting forumadmin")

	if created, err := fasql.CreateDefaultAdminIfNoStaff(nil); err != nil {
		fautil.LogError(err).Msg("Unable to check for staff accounts")
		return err
	} else if created {
		fautil.LogWarning().Msg("Created the default admin account (admin/password), change its password after logging in")
	}
	if deleted, err := fasql.DeleteExpiredSessions(nil, time.Now()); err != nil {
		fautil.LogError(err).Msg("Unable to delete expired sessions")
	} else if deleted > 0 {
		fautil.LogInfo().Int64("deleted", deleted).Msg("Deleted expired sessions")
	}

	serverutil.InitMinifier()
	server.InitRouter()
	manage.SetupRoutes()
	if err := faplugin.LoadPlugins(systemCritical.Plugins); err != nil {
		fautil.LogError(err).Msg("Failed loading plugins")
		return err
	}
	events.TriggerEvent("startup")
	defer events.TriggerEvent("shutdown")

	listener, err := net.Listen("tcp", server.ListenAddress())
	if err != nil {
		fautil.LogError(err).Str("address", server.ListenAddress()).Msg("Unable to listen")
		return err
	}
	httpServer := &http.Server{
		Handler:           server.GetRouter(),
		ReadHeaderTimeout: 30 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		fautil.LogInfo().Str("address", listener.Addr().String()).Bool("fastCGI", systemCritical.UseFastCGI).
			Msg("Listening")
		var err error
		if systemCritical.UseFastCGI {
			err = fcgi.Serve(listener, server.GetRouter())
		} else {
			err = httpServer.Serve(listener)
		}
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		return config.WatchSettingsFile(groupCtx, func() {
			events.TriggerEvent("settings-file-reloaded")
		})
	})
	group.Go(func() error {
		<-groupCtx.Done()
		fautil.LogInfo().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if systemCritical.UseFastCGI {
			return listener.Close()
		}
		return httpServer.Shutdown(shutdownCtx)
	})
	if err = group.Wait(); err != nil {
		fautil.LogError(err).Msg("Server stopped")
		return err
	}
	return nil
}
