package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"testcase-assistant/internal/chat"
	"testcase-assistant/pkg/log"
)

var (
	serverURL   string
	model       string
	failVisibly bool
	mockDetail  bool
	timeout     time.Duration
	logLevel    string
)

// rootCmd runs an interactive chat against a running assistant server
var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the test case assistant from the terminal",
	Long: `Start an interactive session against the assistant's /generate endpoint.

Commands inside the session:
  /model rag|gemini  - switch the model for the next message
  /history           - print the conversation so far
  /quit              - leave`,
	SilenceUsage: true,
	RunE:         runChat,
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Assistant server URL")
	rootCmd.Flags().StringVarP(&model, "model", "m", "rag", "Model to start with (rag or gemini)")
	rootCmd.Flags().BoolVar(&failVisibly, "fail-visibly", false, "Show errors instead of mock fallback content")
	rootCmd.Flags().BoolVar(&mockDetail, "mock-detail", false, "Use full canned content as fallback")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Per-message timeout")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	log.Init(logLevel, "console")
	defer log.Sync()

	policy := chat.FallbackMock
	if failVisibly {
		policy = chat.FallbackFail
	}
	session := chat.NewSession(
		chat.NewHTTPTransport(serverURL, timeout),
		chat.WithModel(model),
		chat.WithFallbackPolicy(policy),
		chat.WithMockDetail(mockDetail),
		chat.WithGreeting(chat.DefaultGreeting),
	)

	return runREPL(cmd.Context(), session, cmd.InOrStdin(), cmd.OutOrStdout(), timeout)
}

// runREPL reads one message per line until EOF or /quit.
func runREPL(ctx context.Context, session *chat.Session, in io.Reader, out io.Writer, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, msg := range session.Transcript() {
		fmt.Fprintf(out, "assistant> %s\n\n", msg.Content)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprintf(out, "[%s] you> ", session.Model())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := scanner.Text()

		switch cmd := strings.Fields(line); {
		case len(cmd) == 0:
			continue
		case cmd[0] == "/quit":
			return nil
		case cmd[0] == "/history":
			for _, msg := range session.Transcript() {
				fmt.Fprintf(out, "%s> %s\n", msg.Role, msg.Content)
			}
			continue
		case cmd[0] == "/model":
			if len(cmd) != 2 {
				fmt.Fprintln(out, "usage: /model rag|gemini")
				continue
			}
			session.SetModel(cmd[1])
			fmt.Fprintf(out, "switched to %s\n", session.Model())
			continue
		}

		msgCtx, cancel := context.WithTimeout(ctx, timeout)
		res, err := session.Submit(msgCtx, line)
		cancel()

		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			continue
		case err != nil:
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "assistant> %s\n", res.Reply)
		if res.Advisory != "" {
			fmt.Fprintf(out, "note: %s\n", res.Advisory)
		}
		fmt.Fprintln(out)
	}
}
