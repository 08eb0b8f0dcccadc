package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rl1809/guild-bag/internal/adapter/handler"
	"github.com/rl1809/guild-bag/internal/adapter/storage"
	"github.com/rl1809/guild-bag/internal/core/domain"
)

func newConsoleCmd(opts *rootOptions) *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Chat with the bot on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return handler.NewConsole(a.dispatcher, cmd.InOrStdin(), cmd.OutOrStdout(), author).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&author, "author", "console", "Author name attached to messages")
	return cmd
}

type execResult struct {
	RequestID string `json:"request_id,omitempty"`
	Status    string `json:"status"`
	Reply     string `json:"reply"`
}

func printResult(w io.Writer, asJSON bool, r execResult) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	if r.Reply != "" {
		_, err := fmt.Fprintln(w, r.Reply)
		return err
	}
	return nil
}

func newExecCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <message...>",
		Short: "Run one message against the local store and print the reply",
		Example: `  guildbag exec '$add 3 Potion of Healing'
  guildbag exec '$list 2'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.dispatcher.Submit(cmd.Context(), domain.Request{
				Author:  "cli",
				Channel: "cli",
				Text:    strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.jsonOutput, execResult{
				RequestID: reply.RequestID,
				Status:    string(reply.Status),
				Reply:     reply.Content,
			})
		},
	}
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	var (
		addr    string
		id      string
		author  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send one message to a running server over gRPC",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.cfg.Server.GRPCAddr
			}
			if addr == "" {
				addr = "localhost:50051"
			}

			client, err := handler.NewCommandClient(addr, opts.cfg.Token)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			resp, err := client.Execute(ctx, &handler.CommandRequest{
				RequestID: id,
				Author:    author,
				Channel:   "cli",
				Content:   strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			if resp.Message != "" && !opts.jsonOutput {
				fmt.Fprintln(cmd.ErrOrStderr(), resp.Message)
			}
			return printResult(cmd.OutOrStdout(), opts.jsonOutput, execResult{
				RequestID: id,
				Status:    resp.Status,
				Reply:     resp.Reply,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "gRPC address of the server (default transport.grpc_addr)")
	cmd.Flags().StringVar(&id, "id", "", "Request ID; repeated IDs are ignored by the server")
	cmd.Flags().StringVar(&author, "author", "cli", "Author name attached to the message")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for the reply")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var compress bool

	cmd := &cobra.Command{
		Use:   "export <file|->",
		Short: "Write the bag state to an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if args[0] == "-" {
				return storage.WriteArchive(cmd.OutOrStdout(), a.svc.Snapshot(), compress)
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := storage.WriteArchive(f, a.svc.Snapshot(), compress); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().BoolVarP(&compress, "zstd", "z", false, "Compress the archive with zstd")
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the bag state with an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			next, err := storage.ReadArchive(r)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.Replace(cmd.Context(), next); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items, %d wishes.\n", len(next.Inventory), len(next.Wishlist))
			return nil
		},
	}
}
