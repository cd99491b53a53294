// Command tutor is a terminal client for the DSA tutor API.
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

	"github.com/alecthomas/kong"

	"github.com/zhouzirui/dsa-tutor/backend/internal/chatview"
)

type cmdProblems struct{}

type cmdAsk struct {
	URL     string   `arg:"" help:"LeetCode problem URL."`
	Message []string `arg:"" help:"Question to ask."`
}

type cmdChat struct {
	URL string `arg:"" optional:"" help:"LeetCode problem URL. Can be changed later with /url."`
}

// CLI is the command line of the tutor client.
type CLI struct {
	Server  string        `default:"http://localhost:8080" env:"TUTOR_SERVER" help:"Base URL of the tutor server."`
	Timeout time.Duration `default:"60s" help:"Timeout for a single request."`
	Raw     bool          `help:"Print replies as markdown instead of formatted text."`

	Problems cmdProblems `cmd:"" help:"List popular problems."`
	Ask      cmdAsk      `cmd:"" help:"Ask a single question about a problem."`
	Chat     cmdChat     `cmd:"" help:"Start an interactive tutoring session."`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("tutor"),
		kong.Description("Ask a DSA tutor for hints on LeetCode problems."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "tutor: %v\n", err)
		return 2
	}

	t := &terminal{
		client:  chatview.NewClient(cli.Server, nil),
		timeout: cli.Timeout,
		raw:     cli.Raw,
		out:     stdout,
	}

	switch kctx.Command() {
	case "problems":
		err = t.listProblems()
	case "ask <url> <message>":
		err = t.ask(cli.Ask.URL, strings.Join(cli.Ask.Message, " "))
	case "chat", "chat <url>":
		err = t.chat(cli.Chat.URL, stdin)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}
	if err != nil {
		fmt.Fprintf(stderr, "tutor: %v\n", err)
		return 1
	}
	return 0
}

// terminal drives a chat session on stdin and stdout.
type terminal struct {
	client  *chatview.Client
	timeout time.Duration
	raw     bool
	out     io.Writer
}

func (t *terminal) listProblems() error {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	entries, err := t.client.Problems(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintf(t.out, "%2d. %-40s %s\n", entry.ID, entry.Name, entry.URL)
	}
	return nil
}

func (t *terminal) ask(url, message string) error {
	session := chatview.NewSession(t.client)
	if !session.SetURL(url) {
		return chatview.ErrInvalidURL
	}
	return t.submit(session, message)
}

func (t *terminal) chat(url string, in io.Reader) error {
	out := t.out
	session := chatview.NewSession(t.client)
	if url != "" && !session.SetURL(url) {
		fmt.Fprintln(out, "That does not look like a LeetCode problem URL. Use /url to set one.")
	}

	fmt.Fprintln(out, "Commands: /url <problem url>, /new, /sidebar, /quit")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit":
			return nil
		case line == "/new":
			session.Reset()
			fmt.Fprintln(out, "Started a new chat. Set a problem with /url.")
		case line == "/sidebar":
			if err := t.listProblems(); err != nil {
				fmt.Fprintf(out, "could not load problems: %v\n", err)
			}
		case strings.HasPrefix(line, "/url"):
			if session.SetURL(strings.TrimSpace(strings.TrimPrefix(line, "/url"))) {
				fmt.Fprintln(out, "Problem set.")
			} else {
				fmt.Fprintln(out, "Invalid LeetCode URL.")
			}
		default:
			err := t.submit(session, line)
			if err != nil && !isRecoverable(err) {
				return err
			}
		}
	}
}

// submit sends one message and prints the finished reply.
func (t *terminal) submit(session *chatview.Session, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	err := session.Submit(ctx, message)
	if errors.Is(err, chatview.ErrEmptyInput) {
		return nil
	}

	msgs := session.Messages()
	if len(msgs) > 0 {
		reply := msgs[len(msgs)-1].Content
		if t.raw {
			fmt.Fprintln(t.out, reply)
		} else {
			fmt.Fprint(t.out, chatview.PlainText(reply))
		}
	}
	return err
}

func isRecoverable(err error) bool {
	var respErr *chatview.ResponseError
	return errors.Is(err, chatview.ErrInvalidURL) ||
		errors.Is(err, chatview.ErrStreamInterrupted) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &respErr)
}
