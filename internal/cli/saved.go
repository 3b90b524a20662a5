package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/devscout/pkg/export"
	"github.com/matzehuels/devscout/pkg/store"
)

// savedCommand creates the saved command with subcommands.
func (c *CLI) savedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved candidates",
		Long: `List, update and export the candidates you saved from search.

Candidates are saved with 'devscout search --save-top N' or with 's' in the
interactive results table. Each saved candidate moves through the statuses
new, contacted, replied, interviewing, hired and rejected.`,
	}

	cmd.AddCommand(c.savedListCommand())
	cmd.AddCommand(c.savedStatusCommand())
	cmd.AddCommand(c.savedRemoveCommand())
	cmd.AddCommand(c.savedExportCommand())

	return cmd
}

func (c *CLI) savedListCommand() *cobra.Command {
	var status, label string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				f, err := savedFilter(status, label)
				if err != nil {
					return err
				}
				list, err := st.List(ctx, f)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					printInfo("No saved candidates")
					return nil
				}
				fmt.Fprintln(stdout, renderSavedTable(list))
				printDetail("%d saved", len(list))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show candidates with this status")
	cmd.Flags().StringVar(&label, "label", "", "only show candidates with this label")
	cmd.RegisterFlagCompletionFunc("status", cobra.FixedCompletions(statusNames(), cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (c *CLI) savedStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <username> <status>",
		Short: "Move a saved candidate to a new status",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 1 {
				return statusNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return c.withStore(cmd.Context(), func(ctx context.Context, s store.Store) error {
				if err := s.UpdateStatus(ctx, args[0], st); err != nil {
					return savedErr(err, args[0])
				}
				printSuccess("%s is now %s", args[0], st)
				return nil
			})
		},
	}
}

func (c *CLI) savedRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <username>",
		Aliases: []string{"rm"},
		Short:   "Remove a saved candidate",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, s store.Store) error {
				if err := s.Delete(ctx, args[0]); err != nil {
					return savedErr(err, args[0])
				}
				printSuccess("Removed %s", args[0])
				return nil
			})
		},
	}
}

func (c *CLI) savedExportCommand() *cobra.Command {
	var format, output, status, label string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export saved candidates as CSV or JSON",
		Long: `Export saved candidates as a flat CSV or JSON file.

Without --output the file is named candidates_export_<date>.<format> in the
current directory. Use --output - to write to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, s store.Store) error {
				f, err := savedFilter(status, label)
				if err != nil {
					return err
				}
				list, err := s.List(ctx, f)
				if err != nil {
					return err
				}
				return writeExport(export.Format(strings.ToLower(format)), output, list)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatCSV), "export format: csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (- for stdout)")
	cmd.Flags().StringVar(&status, "status", "", "only export candidates with this status")
	cmd.Flags().StringVar(&label, "label", "", "only export candidates with this label")

	return cmd
}

func writeExport(format export.Format, output string, list []store.Saved) error {
	if output == "-" {
		return export.Write(stdout, format, list)
	}
	if output == "" {
		output = export.Filename(format, time.Now())
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := export.Write(f, format, list); err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	printSuccess("Exported %d candidates", len(list))
	printFile(output)
	return nil
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func savedFilter(status, label string) (store.Filter, error) {
	f := store.Filter{Label: label}
	if status != "" {
		st, err := store.ParseStatus(status)
		if err != nil {
			return store.Filter{}, err
		}
		f.Status = st
	}
	return f, nil
}

func savedErr(err error, username string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s is not saved", username)
	}
	return err
}

func statusNames() []string {
	names := make([]string, len(store.Statuses))
	for i, s := range store.Statuses {
		names[i] = string(s)
	}
	return names
}

func renderSavedTable(list []store.Saved) string {
	rows := make([][]string, len(list))
	for i, s := range list {
		name := "—"
		if p := s.Candidate.Profile; p != nil && p.Name != nil {
			name = *p.Name
		}
		rows[i] = []string{
			s.Username,
			name,
			string(s.Status),
			strings.Join(s.Labels, ", "),
			s.Candidate.Impact.Tier,
			s.SavedAt.Local().Format("Jan 2, 2006"),
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Username", "Name", "Status", "Labels", "Tier", "Saved").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return headerStyle.Padding(0, 1)
			case col == 0:
				return base.Foreground(colorCyan)
			case col == 2:
				return base.Foreground(statusColor(list[row].Status))
			case col == 5:
				return base.Foreground(colorDim)
			}
			return base
		})
	return t.Render()
}

func statusColor(s store.Status) lipgloss.Color {
	switch s {
	case store.StatusHired:
		return colorGreen
	case store.StatusRejected:
		return colorRed
	case store.StatusNew:
		return colorGray
	default:
		return colorYellow
	}
}
