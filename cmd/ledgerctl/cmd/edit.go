package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func (a *app) addTxCmd() *cobra.Command {
	var typ, category, amount, date, note string
	c := &cobra.Command{
		Use:   "add-tx",
		Short: "Record an income or expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := loadStore(a.file)
			if err != nil {
				return err
			}
			value, err := core.ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("amount %q: %w", amount, err)
			}
			day := core.DateOf(a.now())
			if date != "" {
				if day, err = core.ParseDate(date); err != nil {
					return err
				}
			}

			tx, err := store.AddTransaction(core.Transaction{
				Type:     core.EntryType(strings.ToLower(typ)),
				Category: category,
				Amount:   value,
				Date:     day,
				Note:     note,
			})
			if err != nil {
				return err
			}
			if err := saveStore(a.file, store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s %s on %s (%s)\n",
				tx.Type, tx.Category, cli.FormatMoney(tx.Amount, store.Settings().Currency), tx.Date, tx.ID)
			return nil
		},
	}
	c.Flags().StringVarP(&typ, "type", "t", string(core.Expense), "income or expense")
	c.Flags().StringVarP(&category, "category", "c", "", "Category")
	c.Flags().StringVarP(&amount, "amount", "a", "", "Amount, e.g. 12.50 or 12,50")
	c.Flags().StringVar(&date, "date", "", "Date YYYY-MM-DD (default today)")
	c.Flags().StringVar(&note, "note", "", "Free text note")
	_ = c.MarkFlagRequired("category")
	_ = c.MarkFlagRequired("amount")
	return c
}

func (a *app) postRecurringCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post-recurring <id>",
		Short: "Post the next occurrence of a recurring entry as a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := loadStore(a.file)
			if err != nil {
				return err
			}
			tx, err := store.PostRecurring(args[0], a.now())
			if err != nil {
				return err
			}
			if err := saveStore(a.file, store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %s %s on %s (%s)\n",
				tx.Category, cli.FormatMoney(tx.Amount, store.Settings().Currency), tx.Date, tx.ID)
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the snapshot as indented JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := loadStore(a.file)
			if err != nil {
				return err
			}
			data, err := encodeIndented(store)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the ledger with a snapshot document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			snap, report, err := ledger.ParseSnapshot(data)
			if err != nil {
				return err
			}
			store := ledger.FromSnapshot(snap)
			if err := saveStore(a.file, store); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d transactions, %d budgets, %d debts, %d recurring entries\n",
				len(snap.Transactions), len(snap.Budgets), len(snap.Debts), len(snap.Recurring))
			if !report.Clean() {
				fmt.Fprintln(out, cli.RenderWarning(describeReport(report)))
			}
			return nil
		},
	}
}

// describeReport lists what the lenient parse had to fix.
func describeReport(r ledger.ParseReport) string {
	var parts []string
	if len(r.Defaulted) > 0 {
		parts = append(parts, "defaulted "+strings.Join(r.Defaulted, ", "))
	}
	if len(r.Dropped) > 0 {
		keys := make([]string, 0, len(r.Dropped))
		for k := range r.Dropped {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dropped := make([]string, 0, len(keys))
		for _, k := range keys {
			dropped = append(dropped, fmt.Sprintf("%d %s", r.Dropped[k], k))
		}
		parts = append(parts, "dropped invalid "+strings.Join(dropped, ", "))
	}
	return "  Warning: " + strings.Join(parts, "; ")
}

func (a *app) resetCmd() *cobra.Command {
	var yes bool
	c := &cobra.Command{
		Use:   "reset",
		Short: "Erase every entry and restore default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset erases the whole ledger; pass --yes to confirm")
			}
			store, _, err := loadStore(a.file)
			if err != nil {
				return err
			}
			store.Reset()
			if err := saveStore(a.file, store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger reset")
			return nil
		},
	}
	c.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return c
}
