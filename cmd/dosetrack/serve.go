package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mementolabs/dosetrack/db"
	"github.com/mementolabs/dosetrack/internal/command"
	"github.com/mementolabs/dosetrack/internal/ingest"
	"github.com/mementolabs/dosetrack/internal/logutil"
	"github.com/mementolabs/dosetrack/internal/mediastore"
	"github.com/mementolabs/dosetrack/internal/pathutil"
	"github.com/mementolabs/dosetrack/internal/store"
	"github.com/mementolabs/dosetrack/internal/webhook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inbound SMS webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			bind := strings.TrimSpace(flagOrViperString(cmd, "server-bind", "server.bind"))
			if bind == "" {
				bind = "127.0.0.1"
			}
			port := flagOrViperInt(cmd, "server-port", "server.port")
			if port <= 0 {
				port = 8980
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			loc := time.Local
			if name := strings.TrimSpace(viper.GetString("time.location")); name != "" {
				loc, err = time.LoadLocation(name)
				if err != nil {
					return fmt.Errorf("load time.location %q: %w", name, err)
				}
			}

			dbCfg := db.DefaultConfig()
			dbCfg.DSN = flagOrViperString(cmd, "db-dsn", "db.dsn")
			dbCfg.AutoMigrate = flagOrViperBool(cmd, "db-auto-migrate", "db.auto_migrate")
			if ms := viper.GetInt("db.busy_timeout_ms"); ms > 0 {
				dbCfg.SQLite.BusyTimeoutMs = ms
			}
			gdb, err := db.Open(dbCfg)
			if err != nil {
				return err
			}

			st, err := store.New(gdb)
			if err != nil {
				return err
			}

			mediaDir := pathutil.ExpandHomePath(flagOrViperString(cmd, "media-dir", "media.dir"))
			media, err := mediastore.New(mediaDir)
			if err != nil {
				return err
			}

			dispatcher, err := command.New(command.Options{
				Store:    st,
				Location: loc,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			downloadTimeout := flagOrViperDuration(cmd, "media-download-timeout", "media.download_timeout")
			if downloadTimeout <= 0 {
				downloadTimeout = 60 * time.Second
			}
			ingestor, err := ingest.New(ingest.Options{
				Store:    st,
				Media:    media,
				Client:   &http.Client{Timeout: downloadTimeout},
				MaxBytes: flagOrViperInt64(cmd, "media-max-bytes", "media.max_bytes"),
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			handler, err := webhook.New(webhook.Options{
				Users:    st,
				Dispatch: dispatcher,
				Ingest:   ingestor,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"ok":   true,
					"time": time.Now().Format(time.RFC3339Nano),
				})
			})
			mux.Handle("/twilio", handler)

			addr := fmt.Sprintf("%s:%d", bind, port)
			logger.Info("serve_listening", "addr", addr, "media_dir", media.Root())
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().String("server-bind", "127.0.0.1", "Bind address for the webhook server.")
	cmd.Flags().Int("server-port", 8980, "Port for the webhook server.")
	cmd.Flags().String("db-dsn", "", "SQLite DSN (defaults to ~/.dosetrack/dosetrack.sqlite).")
	cmd.Flags().Bool("db-auto-migrate", true, "Run schema migrations on startup.")
	cmd.Flags().String("media-dir", "~/.dosetrack/media", "Directory for downloaded MMS attachments.")
	cmd.Flags().Int64("media-max-bytes", 20*1024*1024, "Per-attachment download size cap.")
	cmd.Flags().Duration("media-download-timeout", 60*time.Second, "Per-attachment download timeout.")

	return cmd
}
