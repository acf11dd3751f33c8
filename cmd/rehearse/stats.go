package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/progress"
)

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show rating and category progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			field, err := opts.fieldOrEmpty()
			if err != nil {
				return err
			}
			app, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			summary, err := app.Practice.GetDashboardSummary(ctx, opts.user(app), field)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func newRecommendCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "List problems picked for the user's rating",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			field, err := opts.fieldOrEmpty()
			if err != nil {
				return err
			}
			app, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			userID := opts.user(app)
			out := cmd.OutOrStdout()

			next, err := app.Practice.GetRecommendedProblem(ctx, userID, field, "")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Next up")
			fmt.Fprintln(out, "-------")
			printProblem(out, next)

			list, err := app.Practice.RecommendedProblems(ctx, userID, limit)
			if err != nil {
				return err
			}
			if len(list) > 0 {
				fmt.Fprintln(out, "\nAlso worth practicing")
				fmt.Fprintln(out, "---------------------")
				for _, p := range list {
					if p.ID != next.ID {
						printProblem(out, p)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "number of extra suggestions")
	return cmd
}

func printProblem(w io.Writer, p *domain.Problem) {
	fmt.Fprintf(w, "%-28s %-4s %-22s %4d  %s\n", p.ID, p.Field, p.Category, p.DifficultyRating, p.Title)
}

func printSummary(w io.Writer, s *progress.Summary) {
	fmt.Fprintf(w, "Progress for %s (%s)\n", s.UserID, s.Field)
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "Rating:            %d\n", s.Rating)
	fmt.Fprintf(w, "Streak:            %d days\n", s.Streak)
	fmt.Fprintf(w, "Problems solved:   %d / %d\n", s.Stats.ProblemsSolved, s.Stats.TotalProblems)
	fmt.Fprintf(w, "Accuracy:          %d%%\n", s.Stats.Accuracy)
	fmt.Fprintf(w, "Interviews passed: %d / %d\n", s.Stats.InterviewsPassed, s.Stats.InterviewsCompleted)

	if len(s.CategoryPerformance) > 0 {
		fmt.Fprintln(w, "\nCategories")
		fmt.Fprintln(w, "----------")
		for _, c := range s.CategoryPerformance {
			fmt.Fprintf(w, "%-24s %s %3d%%\n", c.Name, renderProgressBar(float64(c.Value)/100, 20), c.Value)
		}
	}
	if len(s.FocusAreas) > 0 {
		names := make([]string, len(s.FocusAreas))
		for i, c := range s.FocusAreas {
			names[i] = string(c)
		}
		fmt.Fprintf(w, "\nFocus on: %s\n", strings.Join(names, ", "))
	}
	if len(s.Achievements) > 0 {
		fmt.Fprintln(w, "\nAchievements")
		fmt.Fprintln(w, "------------")
		for _, a := range s.Achievements {
			fmt.Fprintf(w, "* %s: %s\n", a.Title, a.Description)
		}
	}
}

func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
