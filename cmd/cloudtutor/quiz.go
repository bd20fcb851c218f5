package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudtutor/cloudtutor/internal/model"
	"github.com/cloudtutor/cloudtutor/internal/pipeline"
)

func quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Run an interactive study session in the terminal",
		RunE:  runQuiz,
	}
	f := cmd.Flags()
	f.StringP("user", "u", "default", "User id to study as")
	f.StringP("mode", "m", string(model.ModeAdaptive), "Session mode (adaptive, mock_test)")
	f.StringSliceP("focus", "f", nil, "Focus topic (repeatable)")
	f.Int("minutes", 30, "Daily study minutes")
	f.Bool("offline", false, "Use deterministic stubs only, no model calls")
	return cmd
}

func runQuiz(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	logger := setupLogging(v)
	ctx := cmd.Context()

	rt, err := buildRuntime(ctx, v, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	userID := v.GetString("user")
	mode := model.Mode(v.GetString("mode"))
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n=== Cloudtutor study session (%s) ===\n", mode)
	if rt.offlineOnly {
		fmt.Fprintln(out, "Running offline: deterministic content, no model calls.")
	}

	start, err := rt.online.Start(ctx, userID, mode, v.GetStringSlice("focus"), v.GetInt("minutes"))
	if err != nil {
		return err
	}
	printWarnings(out, start.Warnings)
	fmt.Fprintf(out, "\nPlan: %s  |  %d questions\n",
		strings.Join(start.Plan.Domains, ", "), len(start.Exam.Questions))

	answers, err := presentQuiz(out, cmd.InOrStdin(), start.Exam)
	if err != nil {
		return err
	}

	submit, err := rt.online.Submit(ctx, userID, start.Exam, answers, mode)
	if err != nil {
		return err
	}
	printWarnings(out, submit.Warnings)
	printResults(out, start.Exam, submit)

	fmt.Fprintln(out, "\nSession complete. State saved.")
	return nil
}

// presentQuiz walks the exam question by question and collects 0-based
// answer indexes. Input is 1-based to match the printed choices.
func presentQuiz(out io.Writer, in io.Reader, exam *model.Exam) (*model.AnswerSheet, error) {
	scanner := bufio.NewScanner(in)
	answers := make(map[string]int, len(exam.Questions))

	for i, q := range exam.Questions {
		fmt.Fprintf(out, "\nQ%d. %s\n", i+1, q.Stem)
		for j, choice := range q.Choices {
			fmt.Fprintf(out, "  %d) %s\n", j+1, choice)
		}
		for {
			fmt.Fprint(out, "Your answer (number): ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return nil, err
				}
				// EOF leaves the remaining questions unanswered.
				return &model.AnswerSheet{Answers: answers}, nil
			}
			choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err == nil && choice >= 1 && choice <= len(q.Choices) {
				answers[q.ID] = choice - 1
				break
			}
			fmt.Fprintf(out, "  Enter a number 1-%d\n", len(q.Choices))
		}
	}
	return &model.AnswerSheet{Answers: answers}, nil
}

func printResults(out io.Writer, exam *model.Exam, res *pipeline.SubmitResult) {
	correct := 0
	for _, r := range res.Diagnosis.Results {
		if r.Correct {
			correct++
		}
	}
	fmt.Fprintf(out, "\nScore: %d/%d\n", correct, len(res.Diagnosis.Results))

	if len(res.Diagnosis.TopMisconceptions) > 0 {
		ids := make([]string, 0, len(res.Diagnosis.TopMisconceptions))
		for _, id := range res.Diagnosis.TopMisconceptions {
			ids = append(ids, string(id))
		}
		fmt.Fprintf(out, "Top misconceptions: %s\n", strings.Join(ids, ", "))
	}

	if len(res.Grounded) == 0 {
		fmt.Fprintln(out, "All correct, nothing to review.")
	}
	for _, g := range res.Grounded {
		fmt.Fprintf(out, "\nReview Q%s:\n  %s\n", g.QuestionID, g.Explanation)
		for _, c := range g.Citations {
			fmt.Fprintf(out, "  [%s] %s\n", c.Title, c.URL)
		}
	}

	if len(res.Coaching.LessonPoints) > 0 {
		fmt.Fprintln(out, "\nLesson points:")
		for _, p := range res.Coaching.LessonPoints {
			fmt.Fprintf(out, "  - %s\n", p)
		}
	}
	for _, d := range res.Coaching.MicroDrills {
		fmt.Fprintf(out, "\nDrill (%s):\n", d.MisconceptionID)
		for _, q := range d.Questions {
			fmt.Fprintf(out, "  * %s\n", q)
		}
	}
}

func printWarnings(out io.Writer, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(out, "! %s\n", w)
	}
}
