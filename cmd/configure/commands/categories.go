package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/benvon/civiz/internal/categories"
	"github.com/spf13/cobra"
)

// NewCategoriesCmd inspects the category registry the server would load
func NewCategoriesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect the category registry",
		Long: "Show the budget categories visions are matched against. Reads --file, then " +
			"CATEGORIES_FILE, then the built-in registry.",
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "Category registry YAML file")

	load := func() (*categories.Registry, string, error) {
		path := file
		if path == "" {
			path = os.Getenv("CATEGORIES_FILE")
		}
		if path == "" {
			reg, err := categories.Default()
			return reg, "built-in", err
		}
		reg, err := categories.LoadFile(path)
		return reg, path, err
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List categories with their budgets",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, source, err := load()
				if err != nil {
					return err
				}
				return printCategories(cmd, reg, source)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one category",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, _, err := load()
				if err != nil {
					return err
				}
				c, ok := reg.Lookup(args[0])
				if !ok {
					return fmt.Errorf("unknown category %q", args[0])
				}
				printCategory(cmd, c, c.ID == reg.Default().ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "match <text>",
			Short: "Show which category a vision's text falls into",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, _, err := load()
				if err != nil {
					return err
				}
				return printMatch(cmd, reg, strings.Join(args, " "))
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check that the registry loads",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				reg, source, err := load()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d categories, default %q\n", source, len(reg.All()), reg.Default().ID)
				return nil
			},
		},
	)
	return cmd
}

func printCategories(cmd *cobra.Command, reg *categories.Registry, source string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Categories (%s):\n", source)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTOTAL BUDGET\tREMAINING\tKEYWORDS")
	for _, c := range reg.All() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", c.ID, c.Name, money(c.TotalBudget), money(c.RemainingFunding), len(c.Keywords))
	}
	fmt.Fprintf(w, "\t\t%s\t\t\n", money(reg.TotalBudget()))
	return w.Flush()
}

func printCategory(cmd *cobra.Command, c categories.Category, isDefault bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%s)\n", c.Icon, c.Name, c.ID)
	if isDefault {
		fmt.Fprintln(out, "  Default category for unmatched visions")
	}
	fmt.Fprintf(out, "  %s\n", c.Description)
	fmt.Fprintf(out, "  Total budget: %s\n", money(c.TotalBudget))
	fmt.Fprintf(out, "  Direct funding: %s\n", money(c.DirectFunding))
	fmt.Fprintf(out, "  Nonprofit funding: %s\n", money(c.NonprofitFunding))
	fmt.Fprintf(out, "  Budget deficit: %s\n", money(c.BudgetDeficit))
	fmt.Fprintf(out, "  Remaining funding: %s\n", money(c.RemainingFunding))
	fmt.Fprintf(out, "  Keywords: %s\n", strings.Join(c.Keywords, ", "))
	for _, m := range c.ImpactMetrics {
		fmt.Fprintf(out, "  Impact: %s\n", m)
	}
}

type categoryScore struct {
	id    string
	score int
}

// matchScores scores text against every category, best first
func matchScores(reg *categories.Registry, text string) []categoryScore {
	normalized := strings.ToLower(strings.TrimSpace(text))
	all := reg.All()
	scores := make([]categoryScore, 0, len(all))
	for _, c := range all {
		keywords := make([]string, len(c.Keywords))
		for i, kw := range c.Keywords {
			keywords[i] = strings.ToLower(kw)
		}
		scores = append(scores, categoryScore{id: c.ID, score: categories.Score(normalized, strings.ToLower(c.Name), keywords)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	return scores
}

func printMatch(cmd *cobra.Command, reg *categories.Registry, text string) error {
	out := cmd.OutOrStdout()
	c, ok := reg.Categorize(text)
	if ok {
		fmt.Fprintf(out, "Matched: %s (%s)\n", c.Name, c.ID)
	} else {
		c = reg.Default()
		fmt.Fprintf(out, "No match; visions use the default: %s (%s)\n", c.Name, c.ID)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE")
	for _, s := range matchScores(reg, text) {
		if s.score == 0 {
			break
		}
		fmt.Fprintf(w, "%s\t%d\n", s.id, s.score)
	}
	return w.Flush()
}

// money formats registry amounts, which are in millions of dollars
func money(millions float64) string {
	if millions < 0 {
		return fmt.Sprintf("-$%.1fM", -millions)
	}
	return fmt.Sprintf("$%.1fM", millions)
}
