package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"basegraph.app/chat/core/config"
	"basegraph.app/chat/internal/chat"
	"github.com/spf13/cobra"
)

func newSendCmd(opts *options) *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send one message and print the reply",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var text string
			if len(args) == 1 {
				text = args[0]
			}
			attachments, err := loadFiles(files)
			if err != nil {
				return err
			}
			if err := chat.ValidateTurn(text, attachments); err != nil {
				return err
			}

			ctx := cmd.Context()
			<-client.Start(ctx)

			r := newRenderer(cmd.OutOrStdout())
			before := len(client.Conversation().Messages())
			unsubscribe := client.Conversation().Subscribe(func(s chat.Snapshot) {
				if len(s.Messages) > before {
					s.Messages = s.Messages[before:]
					r.render(s)
				}
			})
			defer unsubscribe()

			return client.SubmitTurn(ctx, text, attachments)
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "attach a file (repeatable, max 10 MiB each)")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the conversation history of this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			<-client.Start(cmd.Context())

			snap := client.Conversation().Snapshot()
			if len(snap.Messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no history)")
				return nil
			}
			newRenderer(cmd.OutOrStdout()).render(snap)
			return nil
		},
	}
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the conversation of this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := opts.newClient(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client.Start(ctx)
			client.ClearConversation(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "conversation cleared")
			return nil
		},
	}
}

const helpText = `commands:
  /attach <path>  attach a file to the next message
  /files          list pending attachments
  /clear          clear the conversation
  /quit           exit`

// runInteractive reads one message per line until EOF or /quit.
func runInteractive(ctx context.Context, client *chat.Client, cfg config.Config, in io.Reader, out io.Writer) error {
	r := newRenderer(out)
	unsubscribe := client.Conversation().Subscribe(r.render)
	defer unsubscribe()

	fmt.Fprintf(out, "chatting as app %q via %s, /help for commands\n", cfg.AppName, cfg.Client.RelayURL)
	client.Start(ctx)

	var pending []chat.File
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch cmd, arg, _ := strings.Cut(line, " "); cmd {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, helpText)
			continue
		case "/clear":
			pending = nil
			client.ClearConversation(ctx)
			continue
		case "/files":
			if len(pending) == 0 {
				fmt.Fprintln(out, "no files attached")
			}
			for _, f := range pending {
				fmt.Fprintf(out, "  %s (%s, %d bytes)\n", f.Name, f.MIMEType, len(f.Data))
			}
			continue
		case "/attach":
			f, err := chat.LoadFile(strings.TrimSpace(arg))
			if err != nil {
				fmt.Fprintln(out, "cannot attach:", err)
				continue
			}
			pending = append(pending, f)
			fmt.Fprintf(out, "attached %s\n", f.Name)
			continue
		}

		if err := chat.ValidateTurn(line, pending); err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if err := client.SubmitTurn(ctx, line, pending); err != nil {
			if errors.Is(err, chat.ErrTurnInFlight) {
				fmt.Fprintln(out, "still waiting for the previous reply")
				continue
			}
			return err
		}
		pending = nil
	}
	return scanner.Err()
}

func loadFiles(paths []string) ([]chat.File, error) {
	files := make([]chat.File, 0, len(paths))
	for _, p := range paths {
		f, err := chat.LoadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
