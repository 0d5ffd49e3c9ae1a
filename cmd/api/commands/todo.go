package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/calendo/core/internal/adapters/client"
	"github.com/calendo/core/internal/adapters/snapshot"
	"github.com/calendo/core/internal/calendar"
	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/infrastructure/logger"
)

var (
	doneStyle  = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	dateStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

// priorityStyle renders text in the calendar color of p.
func priorityStyle(p entities.Priority) lipgloss.Style {
	var c lipgloss.Color
	switch p.Color() {
	case "red":
		c = lipgloss.Color("9")
	case "orange":
		c = lipgloss.Color("214")
	default:
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c)
}

// NewTodoCommand creates the calendar client commands
func NewTodoCommand() *cobra.Command {
	todoCmd := &cobra.Command{
		Use:   "todo",
		Short: "Calendar client for a running Calendo server",
		Long:  "Work with the calendar through the local snapshot and the REST store (list, add, done, delete, events)",
	}
	todoCmd.PersistentFlags().Bool("refresh", false, "discard the local snapshot and reload from the server")

	todoCmd.AddCommand(newTodoListCommand())
	todoCmd.AddCommand(newTodoAddCommand())
	todoCmd.AddCommand(newTodoDoneCommand())
	todoCmd.AddCommand(newTodoDeleteCommand())
	todoCmd.AddCommand(newTodoEventsCommand())

	return todoCmd
}

type clientSession struct {
	logger *logger.Logger
	cache  *calendar.Cache
	ctrl   *calendar.Controller
}

func openClientSession(cmd *cobra.Command) (*clientSession, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	// Client output goes to stdout; keep logs out of it.
	logCfg := cfg.Logger
	logCfg.Format = "console"
	if logCfg.Output != "file" {
		logCfg.Output = "stderr"
	}
	if logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := client.NewTodoClient(cfg.Client.BaseURL, cfg.Client.Timeout)
	if err != nil {
		return nil, err
	}

	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		if err := os.Remove(cfg.Client.SnapshotPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to discard snapshot: %w", err)
		}
	}

	snaps, err := snapshot.NewFileStore(cfg.Client.SnapshotPath)
	if err != nil {
		return nil, err
	}

	cache := calendar.NewCache(snaps, log)
	source, err := cache.Hydrate(cmd.Context(), store)
	if err != nil {
		return nil, err
	}
	log.Debugw("Calendar loaded", "source", source, "snapshot", snaps.Path())

	return &clientSession{
		logger: log,
		cache:  cache,
		ctrl:   calendar.NewController(cache, store, log, nil),
	}, nil
}

// selectDate picks --date, or the day holding id, or today.
func (s *clientSession) selectDate(cmd *cobra.Command, id string) error {
	date, _ := cmd.Flags().GetString("date")
	if date == "" && id != "" {
		date, _ = s.cache.DateOf(id)
	}
	if date == "" {
		date = s.ctrl.Today()
	}
	return s.ctrl.SelectDate(date)
}

func (s *clientSession) close() {
	s.logger.Close()
}

func newTodoListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the todos of a day, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openClientSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.selectDate(cmd, ""); err != nil {
				return err
			}
			category, _ := cmd.Flags().GetString("category")
			if err := s.ctrl.SetFilter(category); err != nil {
				return err
			}

			printDay(cmd.OutOrStdout(), s.ctrl)
			return nil
		},
	}
	cmd.Flags().String("date", "", "day to show (YYYY-MM-DD), defaults to today")
	cmd.Flags().String("category", entities.CategoryAll, "category filter: all, work, personal or entertainment")
	return cmd
}

func newTodoAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add TEXT",
		Short: "Add a todo to a day, or update the one with the same text and category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openClientSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.selectDate(cmd, ""); err != nil {
				return err
			}
			category, _ := cmd.Flags().GetString("category")
			if err := s.ctrl.SetFilter(category); err != nil {
				return err
			}
			priority, _ := cmd.Flags().GetString("priority")

			todo, err := s.ctrl.AddTodo(cmd.Context(), args[0], entities.Priority(priority))
			if errors.Is(err, entities.ErrPastDate) {
				return fmt.Errorf("cannot add todos to past dates (%s)", s.ctrl.SelectedDate())
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", todo.ID, priorityStyle(todo.Priority).Render(todo.Text))
			return nil
		},
	}
	cmd.Flags().String("date", "", "day of the todo (YYYY-MM-DD), defaults to today")
	cmd.Flags().String("priority", string(entities.PriorityLow), "Low, Medium or High")
	cmd.Flags().String("category", entities.CategoryAll, "work, personal or entertainment; all stores General")
	return cmd
}

func newTodoDoneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done ID",
		Short: "Toggle the done flag of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openClientSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.selectDate(cmd, args[0]); err != nil {
				return err
			}

			todo, err := s.ctrl.ToggleDone(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			state := "open"
			if todo.IsDone {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", todo.ID, state)
			return nil
		},
	}
	cmd.Flags().String("date", "", "day holding the todo, found from the snapshot when omitted")
	return cmd
}

func newTodoDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openClientSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.selectDate(cmd, args[0]); err != nil {
				return err
			}

			if err := s.ctrl.DeleteTodo(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().String("date", "", "day holding the todo, found from the snapshot when omitted")
	return cmd
}

func newTodoEventsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print every calendar event in its priority color",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openClientSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			printEvents(cmd.OutOrStdout(), s.ctrl.Events())
			return nil
		},
	}
}

func printDay(w io.Writer, ctrl *calendar.Controller) {
	header := ctrl.SelectedDate()
	if ctrl.IsPastDate() {
		header += mutedStyle.Render(" (past)")
	}
	fmt.Fprintln(w, dateStyle.Render(header))

	todos := ctrl.VisibleTodos()
	if len(todos) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no todos"))
		return
	}

	for _, t := range todos {
		text := t.Text
		mark := "[ ]"
		if t.IsDone {
			text = doneStyle.Render(text)
			mark = "[x]"
		}
		fmt.Fprintf(w, "  %s %s %s %s %s\n",
			mark,
			priorityStyle(t.Priority).Render(fmt.Sprintf("%-6s", t.Priority)),
			text,
			mutedStyle.Render(t.Category),
			mutedStyle.Render(t.ID),
		)
	}
}

func printEvents(w io.Writer, events []calendar.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no events"))
		return
	}

	current := ""
	for _, e := range events {
		if e.Date != current {
			current = e.Date
			fmt.Fprintln(w, dateStyle.Render(current))
		}
		fmt.Fprintf(w, "  %s %s\n", priorityStyle(e.Priority).Render("●"), e.Title)
	}
}
