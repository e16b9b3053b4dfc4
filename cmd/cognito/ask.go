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

	"github.com/aretw0/cognito"
	"github.com/aretw0/cognito/internal/presentation/tui"
	"github.com/aretw0/cognito/pkg/domain"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// asker is the slice of cognito.Service the ask loop drives.
type asker interface {
	Query(ctx context.Context, q cognito.Query) (*cognito.Answer, error)
	Resume(ctx context.Context, walkID, decision string) (*cognito.Answer, error)
}

type askOptions struct {
	query    cognito.Query
	decision string
	json     bool
	// interactive prompts for a decision when a walk suspends.
	interactive bool
	render      func(string) string
}

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask a question and follow the walk to its answer",
	Long: `Runs one query through the workflow. When a critical action needs approval you are
prompted for APPROVE or REJECT, unless --decision is given. Without a terminal and
without --decision the walk stays parked and can be resumed with 'cognito walks resume'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		in := bufio.NewReader(cmd.InOrStdin())
		if question == "" {
			line, err := in.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			question = line
		}

		_, a, _, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		opts := askOptions{
			query:       cognito.Query{RawInput: question},
			interactive: term.IsTerminal(int(os.Stdin.Fd())),
			render:      tui.PlainRenderer,
		}
		opts.query.UserID, _ = cmd.Flags().GetString("user")
		opts.query.TargetRoute, _ = cmd.Flags().GetString("route")
		opts.decision, _ = cmd.Flags().GetString("decision")
		opts.json, _ = cmd.Flags().GetBool("json")

		if fd := int(os.Stdout.Fd()); !opts.json && term.IsTerminal(fd) {
			width, _, _ := term.GetSize(fd)
			opts.render = tui.NewRenderer(width)
			if banner, _ := cmd.Flags().GetBool("banner"); banner {
				tui.PrintBanner(cmd.ErrOrStderr(), a.svc.Identity())
			}
		}
		return runAsk(cmd.Context(), a.svc, in, cmd.OutOrStdout(), opts)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().String("user", "", "User ID recorded on the walk")
	askCmd.Flags().String("route", "", "Force a specialist, e.g. finance_expert")
	askCmd.Flags().String("decision", "", "Answer approval prompts with APPROVE or REJECT")
	askCmd.Flags().Bool("json", false, "Print answers as JSON")
	askCmd.Flags().Bool("banner", true, "Show the banner on interactive terminals")
}

// runAsk runs the query and settles every suspension it meets.
func runAsk(ctx context.Context, svc asker, in *bufio.Reader, out io.Writer, opts askOptions) error {
	ans, err := svc.Query(ctx, opts.query)
	if err != nil {
		return err
	}
	for {
		if err := printAnswer(out, ans, opts); err != nil {
			return err
		}
		if !ans.Suspended() {
			return nil
		}

		decision := opts.decision
		if decision == "" {
			if !opts.interactive {
				fmt.Fprintf(out, "walk %s is waiting for approval\n", ans.WalkID)
				return nil
			}
			decision, err = prompt(in, out)
			if err != nil {
				return err
			}
		}

		next, err := svc.Resume(ctx, ans.WalkID, decision)
		if errors.Is(err, domain.ErrUnknownDecision) && opts.decision == "" {
			fmt.Fprintln(out, tui.Warn("Please answer APPROVE or REJECT."))
			continue
		}
		if err != nil {
			return err
		}
		ans = next
	}
}

func prompt(in *bufio.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, tui.Warn("Decision [APPROVE/REJECT]: "))
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("no decision given: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printAnswer(out io.Writer, ans *cognito.Answer, opts askOptions) error {
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}
	_, err := fmt.Fprintln(out, opts.render(tui.AnswerMarkdown(ans)))
	return err
}
