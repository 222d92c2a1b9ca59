package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/chat"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

type options struct {
	relayURL  string
	userID    string
	sessionID string
	stateFile string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "Chat with the agent through the relay",
		Long:          "Interactive terminal chat. Type a message and press enter; /help lists commands.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := opts.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runInteractive(cmd.Context(), client, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.relayURL, "relay", "", "relay base URL (default $CHAT_RELAY_URL)")
	flags.StringVar(&opts.userID, "user", "", "user id override (default $CHAT_USER_ID)")
	flags.StringVar(&opts.sessionID, "session", "", "chat session id override (default $CHAT_SESSION_ID)")
	flags.StringVar(&opts.stateFile, "state-file", "", "where the chat session id is persisted (default $CHAT_STATE_FILE)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(newSendCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newClearCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chat %s (commit: %s)\n", Version, Commit)
		},
	}
}

// newClient builds a chat client from config, with flags taking precedence.
func (o *options) newClient(stderr io.Writer) (*chat.Client, config.Config, error) {
	cfg, err := config.Load(config.ServiceTypeClient)
	if err != nil {
		return nil, cfg, err
	}

	logOut := io.Discard
	if o.verbose {
		logOut = stderr
	}
	log := slog.New(logger.NewHandler(cfg, logOut))

	relayURL := firstNonEmpty(o.relayURL, cfg.Client.RelayURL)
	httpClient := &http.Client{Transport: withSessionCookie(http.DefaultTransport, cfg.Client.SessionCookie)}

	storage, err := o.storage(cfg)
	if err != nil {
		return nil, cfg, err
	}

	var users chat.UserResolver = chat.NewRelayUser(relayURL, httpClient)
	if cfg.Client.SessionCookie == "" {
		users = nil
	}

	client, err := chat.New(chat.Config{
		BaseURL:           relayURL,
		AppName:           cfg.AppName,
		UserIDOverride:    firstNonEmpty(o.userID, cfg.Client.UserIDOverride),
		SessionIDOverride: firstNonEmpty(o.sessionID, cfg.Client.SessionIDOverride),
		HTTPClient:        httpClient,
		Identity:          chat.NewIdentityStore(storage, log),
		Users:             users,
		TurnTimeout:       cfg.Client.TurnTimeout,
		Logger:            log,
	})
	return client, cfg, err
}

func (o *options) storage(cfg config.Config) (chat.Storage, error) {
	path := firstNonEmpty(o.stateFile, cfg.Client.StateFile)
	if path == "" {
		var err error
		if path, err = chat.DefaultStatePath(); err != nil {
			return nil, err
		}
	}
	return chat.NewFileStorage(path), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
