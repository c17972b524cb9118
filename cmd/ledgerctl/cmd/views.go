package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/engine"
)

func (a *app) periodCmd() *cobra.Command {
	var date string
	c := &cobra.Command{
		Use:   "period",
		Short: "Show the pay period containing a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := loadStore(a.file)
			if err != nil {
				return err
			}
			ref := core.DateOf(a.now())
			if date != "" {
				if ref, err = core.ParseDate(date); err != nil {
					return err
				}
			}
			settings := store.Settings()
			p := core.PeriodContaining(ref, settings.Payday)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.RenderTable([]string{"Field", "Value"}, [][]string{
				{"Date", ref.String()},
				{"Payday", strconv.Itoa(settings.Payday)},
				{"Start", p.Start.String()},
				{"End (exclusive)", p.End.String()},
				{"Days", strconv.Itoa(p.Days())},
			}))
			return nil
		},
	}
	c.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default today)")
	return c
}

func (a *app) summaryCmd() *cobra.Command {
	var month string
	c := &cobra.Command{
		Use:   "summary",
		Short: "Dashboard of a pay period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := loadStore(a.file)
			if err != nil {
				return err
			}
			snap := store.Snapshot()
			now := a.now()

			p := engine.CurrentPeriod(snap.Settings, now)
			if month != "" {
				m, err := core.ParseMonth(month)
				if err != nil {
					return err
				}
				p = m.Period(snap.Settings.Payday)
			}

			renderDashboard(cmd.OutOrStdout(), engine.BuildDashboard(snap, p, now))
			return nil
		},
	}
	c.Flags().StringVar(&month, "month", "", "Period starting in month YYYY-MM (default current)")
	return c
}

func renderDashboard(out io.Writer, d core.Dashboard) {
	cur := d.Currency

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("PERIOD  %s → %s", d.Period.Start, d.Period.End)))
	fmt.Fprintln(out, cli.RenderTable([]string{"Metric", "Value"}, [][]string{
		{"Income", cli.FormatMoney(d.Totals.Income, cur)},
		{"Expense", cli.FormatMoney(d.Totals.Expense, cur)},
		{"Balance", cli.FormatSigned(d.Totals.Balance, cur)},
		{"Available", cli.FormatSigned(d.Available, cur)},
		{"Daily budget", cli.FormatMoney(d.DailyBudget, cur)},
		{"Days elapsed", strconv.Itoa(d.Days.Elapsed)},
		{"Days remaining", strconv.Itoa(d.Days.Remaining)},
	}))

	if len(d.ByCategory) > 0 {
		rows := make([][]string, 0, len(d.ByCategory))
		for _, c := range d.ByCategory {
			rows = append(rows, []string{c.Name, cli.FormatMoney(c.Amount, cur)})
		}
		fmt.Fprintln(out, cli.RenderTable([]string{"Category", "Spent"}, rows))
	}

	if len(d.Budgets) > 0 {
		rows := make([][]string, 0, len(d.Budgets))
		for _, b := range d.Budgets {
			pct := b.Percent()
			rows = append(rows, []string{
				b.Category,
				cli.FormatMoney(b.Plan, cur),
				cli.FormatMoney(b.Fact, cur),
				cli.FormatBar(pct, 10) + " " + cli.FormatPercent(pct),
			})
		}
		fmt.Fprintln(out, cli.RenderTable([]string{"Budget", "Plan", "Fact", "Used"}, rows))
	}
}

func (a *app) upcomingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upcoming",
		Short: "Next occurrence of every recurring entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := loadStore(a.file)
			if err != nil {
				return err
			}
			snap := store.Snapshot()
			out := cmd.OutOrStdout()
			if len(snap.Recurring) == 0 {
				fmt.Fprintln(out, cli.RenderMuted("  No recurring entries."))
				return nil
			}

			today := core.DateOf(a.now())
			rows := [][]string{}
			for _, occ := range engine.UpcomingOccurrences(snap.Recurring, a.now()) {
				next, in := "ended", "-"
				if occ.Ok {
					next = occ.Next.String()
					in = strconv.Itoa(today.DaysUntil(occ.Next)) + "d"
				}
				r := occ.Recurring
				rows = append(rows, []string{
					r.Category,
					string(r.Type),
					cli.FormatMoney(r.Amount, snap.Settings.Currency),
					string(r.Frequency),
					next,
					in,
					r.ID,
				})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"Category", "Type", "Amount", "Every", "Next", "In", "ID"}, rows))
			return nil
		},
	}
}

func (a *app) debtsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debts",
		Short: "Debts with payments and outstanding amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := loadStore(a.file)
			if err != nil {
				return err
			}
			snap := store.Snapshot()
			out := cmd.OutOrStdout()
			if len(snap.Debts) == 0 {
				fmt.Fprintln(out, cli.RenderMuted("  No debts."))
				return nil
			}

			cur := snap.Settings.Currency
			rows := [][]string{}
			for _, d := range engine.SortedDebts(snap.Debts) {
				status := "open"
				if d.IsClosed() {
					status = "closed"
				}
				due := "-"
				if !d.DueDate.IsEmpty() {
					due = d.DueDate.String()
				}
				rows = append(rows, []string{
					d.Person,
					string(d.Direction),
					cli.FormatMoney(d.Principal, cur),
					cli.FormatMoney(d.Paid(), cur),
					cli.FormatMoney(d.Outstanding(), cur),
					due,
					status,
				})
			}
			fmt.Fprintln(out, cli.RenderTable([]string{"Person", "Direction", "Principal", "Paid", "Outstanding", "Due", "Status"}, rows))
			return nil
		},
	}
}
