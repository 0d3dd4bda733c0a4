// Purpose: Wire cobra subcommands to internal taskboard.RunX implementations.
// Exports: none.
// Role: CLI composition layer for user-facing commands.
// Invariants: Flags and command names align with help/quickstart docs.
// Notes: init functions register commands and their flags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandover/taskboard/internal/taskboard"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(whereCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(dupesCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(quickstartCmd)
	rootCmd.AddCommand(versionCmd)
}

// -- init --
var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize taskboard in the current (or specified) directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunInit(args, globalOpts)
	},
}

// -- where --
var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Print the active .taskboard directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunWhere(globalOpts)
	},
}

// -- new --
var newOpts taskboard.NewOptions

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a task (flags or JSON stdin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunNew(newOpts, globalOpts)
	},
}

func init() {
	newCmd.Flags().StringVar(&newOpts.ID, "id", "", "Task id (generated when empty)")
	newCmd.Flags().StringVar(&newOpts.Title, "title", "", "Task title (omit to read JSON from stdin)")
	newCmd.Flags().StringVar(&newOpts.Description, "description", "", "Description")
	newCmd.Flags().StringVar(&newOpts.Agent, "agent", "", "Responsible agent")
	newCmd.Flags().StringVar(&newOpts.Status, "status", "", "Initial status (default todo)")
	newCmd.Flags().StringVar(&newOpts.Priority, "priority", "", "low|medium|high|critical")
	newCmd.Flags().StringSliceVar(&newOpts.Dependencies, "dep", nil, "Dependency id (repeatable)")
	newCmd.Flags().StringSliceVar(&newOpts.Tags, "tag", nil, "Tag (repeatable)")
	newCmd.Flags().StringVar(&newOpts.Due, "due", "", "Due date (RFC 3339 or YYYY-MM-DD)")
	newCmd.Flags().Float64Var(&newOpts.EstimatedHours, "estimate", 0, "Estimated hours")
	newCmd.Flags().StringVar(&newOpts.Assignee, "assignee", "", "Assignee")
	newCmd.Flags().StringVar(&newOpts.Template, "template", "", "Create from a configured template")
	newCmd.Flags().StringArrayVar(&newOpts.Vars, "var", nil, "Template variable key=value (repeatable)")
}

// -- templates --
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List task templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, _ := cmd.Flags().GetString("agent")
		tags, _ := cmd.Flags().GetStringSlice("tags")
		return taskboard.RunTemplates(agent, tags, globalOpts)
	},
}

func init() {
	templatesCmd.Flags().String("agent", "", "Only templates for this agent")
	templatesCmd.Flags().StringSlice("tags", nil, "Only templates with any of these tags (comma-separated)")
}

// -- list --
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks grouped by status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		agent, _ := cmd.Flags().GetString("agent")
		all, _ := cmd.Flags().GetBool("all")
		return taskboard.RunList(taskboard.ListOptions{Status: status, Agent: agent, All: all}, globalOpts)
	},
}

func init() {
	listCmd.Flags().String("status", "", "Only tasks with this status")
	listCmd.Flags().String("agent", "", "Only tasks for this agent")
	listCmd.Flags().Bool("all", false, "Include complete and cancelled tasks")
}

// -- show --
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunShow(args[0], globalOpts)
	},
}

// -- set --
var setCmd = &cobra.Command{
	Use:   "set <id>",
	Short: "Update task fields (JSON stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunSet(args[0], globalOpts)
	},
}

// -- status --
var statusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Move a task to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		return taskboard.RunStatus(args[0], args[1], note, globalOpts)
	},
}

func init() {
	statusCmd.Flags().String("note", "", "Note recorded with the change")
}

// -- note --
var noteCmd = &cobra.Command{
	Use:   "note <id> <text>",
	Short: "Append a note to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunNote(args[0], args[1], globalOpts)
	},
}

// -- deps --
var depsCmd = &cobra.Command{
	Use:   "deps <id>",
	Short: "Show a task's dependency chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunDeps(args[0], globalOpts)
	},
}

// -- ready --
var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "Move blocked tasks with complete dependencies to todo",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunReady(globalOpts)
	},
}

// -- validate --
var validateCmd = &cobra.Command{
	Use:   "validate [id]",
	Short: "Validate one task or the whole board",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return taskboard.RunValidate(id, globalOpts)
	},
}

// -- fix --
var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Apply automatic fixes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		deps, _ := cmd.Flags().GetBool("deps")
		return taskboard.RunFix(taskboard.FixCommandOptions{DryRun: dryRun, Deps: deps}, globalOpts)
	},
}

func init() {
	fixCmd.Flags().Bool("dry-run", false, "List fixes without applying them")
	fixCmd.Flags().Bool("deps", false, "Also move todo tasks with incomplete dependencies to blocked")
}

// -- dupes --
var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Find likely duplicate tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return taskboard.RunDupes(all, globalOpts)
	},
}

func init() {
	dupesCmd.Flags().Bool("all", false, "Include complete tasks")
}

// -- merge --
var mergeCmd = &cobra.Command{
	Use:   "merge [<keep> <remove>]",
	Short: "Merge duplicate tasks",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		preview, _ := cmd.Flags().GetBool("preview")
		auto, _ := cmd.Flags().GetBool("auto")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		take, _ := cmd.Flags().GetStringArray("take")
		return taskboard.RunMerge(args, taskboard.MergeOptions{Preview: preview, Auto: auto, DryRun: dryRun, Take: take}, globalOpts)
	},
}

func init() {
	mergeCmd.Flags().Bool("preview", false, "Show conflicts and the suggested strategy")
	mergeCmd.Flags().Bool("auto", false, "Merge every auto-mergeable pair")
	mergeCmd.Flags().Bool("dry-run", false, "Report without writing")
	mergeCmd.Flags().StringArray("take", nil, "Field to take from the removed task (repeatable)")
}

// -- stats --
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show board analytics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		weeks, _ := cmd.Flags().GetInt("weeks")
		return taskboard.RunStats(weeks, globalOpts)
	},
}

func init() {
	statsCmd.Flags().Int("weeks", 12, "Weeks of completion history in the velocity report")
}

// -- export --
var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export tasks and analytics as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunExport(args[0], globalOpts)
	},
}

// -- cleanup --
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove duplicate task files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunCleanup(globalOpts)
	},
}

// -- watch --
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Revalidate whenever task files change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return taskboard.RunWatch(ctx, globalOpts)
	},
}

// -- quickstart --
var quickstartCmd = &cobra.Command{
	Use:   "quickstart",
	Short: "Show quickstart guide",
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskboard.RunQuickstart(args)
	},
}

// -- version --
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}
