package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quiz-engine/internal/app"
	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/logger"
	"quiz-engine/internal/selector"
)

// NewPlayCmd runs a quiz in the terminal.
func NewPlayCmd(configPath *string, in io.Reader, out io.Writer) *cobra.Command {
	var (
		poolID     string
		count      int
		categories []string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a timed quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			// Keep the terminal readable unless a level is configured explicitly.
			if cfg.Log.Level == "" {
				cfg.Log.Level = "warn"
			}
			log, err := logger.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if poolID == "" {
				poolID = cfg.DefaultPool()
			}
			if count <= 0 {
				count = cfg.QuestionCount()
			}

			pool, err := buildPoolRepository(cfg, nil, nil, log).GetPool(cmd.Context(), poolID)
			if err != nil {
				return err
			}
			questions := selector.Select(pool.Questions, selector.Options{Count: count, Categories: categories}, nil)

			runner := app.NewRunner("terminal", runnerConfig(cfg), log)
			return playQuiz(cmd.Context(), runner, questions, in, out)
		},
	}
	cmd.Flags().StringVar(&poolID, "pool", "", "question pool to draw from (defaults to pool.default)")
	cmd.Flags().IntVar(&count, "count", 0, "number of questions (defaults to quiz.count)")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "only ask questions from these sections")
	return cmd
}

// playQuiz renders views from the runner and forwards numbered answers typed on in.
func playQuiz(ctx context.Context, runner *app.Runner, questions []domain.Question, in io.Reader, out io.Writer) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	updates, cancel := runner.Subscribe()
	defer cancel()
	defer runner.Close()

	lines := readLines(ctx, in)

	if _, err := runner.Start(questions); err != nil {
		return err
	}

	screen := &terminal{out: out}
	for {
		select {
		case v, ok := <-updates:
			if !ok {
				return nil
			}
			screen.render(v)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			done, err := screen.handle(runner, updates, line)
			if err != nil || done {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readLines forwards trimmed lines from in until EOF or until ctx is done.
func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

type terminal struct {
	out      io.Writer
	current  string
	lastWarn int
	finished bool
}

// handle applies one line of input and reports whether the player is done.
func (t *terminal) handle(runner *app.Runner, updates <-chan domain.View, line string) (bool, error) {
	v := runner.View()
	switch v.State {
	case domain.StateInProgress:
		n, err := strconv.Atoi(line)
		if err != nil || !v.Question.ValidOption(n-1) {
			fmt.Fprintf(t.out, "Enter a number between 1 and %d.\n", len(v.Question.Options))
			return false, nil
		}
		if _, err := runner.Confirm(v.Question.ID, n-1); err != nil && !domain.IsHarmlessRace(err) {
			return false, err
		}
		return false, nil
	case domain.StateFinished:
		t.render(v)
		if !strings.EqualFold(line, "y") {
			return true, nil
		}
		// Views still queued belong to the finished run.
		for drained := false; !drained; {
			select {
			case <-updates:
			default:
				drained = true
			}
		}
		t.current, t.finished, t.lastWarn = "", false, 0
		if _, err := runner.Replay(); err != nil {
			return false, err
		}
		return false, nil
	default:
		return false, nil
	}
}

func (t *terminal) render(v domain.View) {
	switch v.State {
	case domain.StateInProgress:
		if v.Question.ID != t.current {
			t.current = v.Question.ID
			t.lastWarn = 0
			t.renderQuestion(v)
			return
		}
		secs := int(v.TimeRemaining / time.Second)
		if (secs == 10 || secs == 5) && secs != t.lastWarn {
			t.lastWarn = secs
			fmt.Fprintf(t.out, "  %ds left\n", secs)
		}
	case domain.StateFinished:
		if t.finished {
			return
		}
		t.finished = true
		t.current = ""
		t.renderSummary(v)
		fmt.Fprint(t.out, "Play again? [y/N] ")
	}
}

func (t *terminal) renderQuestion(v domain.View) {
	q := v.Question
	fmt.Fprintf(t.out, "\nQuestion %d / %d  [%s]  (%s)\n", v.Index+1, v.Total, q.Category, v.TimeLimit)
	fmt.Fprintln(t.out, q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, opt)
	}
	fmt.Fprint(t.out, "> ")
}

func (t *terminal) renderSummary(v domain.View) {
	s := v.Stats
	fmt.Fprintln(t.out, "\nQuiz complete")
	fmt.Fprintf(t.out, "Total score: %.2f / %.0f\n", s.TotalScore, s.TotalMaxScore)
	fmt.Fprintf(t.out, "Accuracy:    %.0f%% (%d/%d correct)\n", s.Accuracy()*100, s.CorrectCount, s.TotalQuestions)
	fmt.Fprintf(t.out, "Avg. time:   %s per question\n", s.AverageTime.Round(time.Second))

	byID := make(map[string]domain.Question, len(v.Questions))
	for _, q := range v.Questions {
		byID[q.ID] = q
	}
	for i, r := range v.Results {
		q := byID[r.QuestionID]
		mark := "x"
		if r.IsCorrect {
			mark = "v"
		}
		answer := "No Answer"
		if q.ValidOption(r.SelectedIndex) {
			answer = q.Options[r.SelectedIndex]
		}
		fmt.Fprintf(t.out, "%2d. [%s] %s\n", i+1, mark, q.Prompt)
		fmt.Fprintf(t.out, "    your answer: %s", answer)
		if !r.IsCorrect && q.ValidOption(q.AnswerIndex) {
			fmt.Fprintf(t.out, "  correct: %s", q.Options[q.AnswerIndex])
		}
		fmt.Fprintf(t.out, "  time: %s  score: %.2f (accuracy %.0f + speed %.2f)\n",
			r.TimeTaken.Round(time.Second), r.Score, r.AccuracyScore, r.SpeedScore)
	}
}
