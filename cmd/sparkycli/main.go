package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ent0n29/sparky/internal/app"
	"github.com/ent0n29/sparky/internal/config"
	"github.com/ent0n29/sparky/internal/logging"
	"github.com/ent0n29/sparky/internal/taskruntime"
)

var (
	boldStyle      = color.New(color.Bold)
	assistantStyle = color.New(color.FgCyan)
	noticeStyle    = color.New(color.FgGreen)
	errorStyle     = color.New(color.FgRed)
	doneStyle      = color.New(color.Faint)
)

const helpText = `Commands:
  /add <task>     add a task without asking the assistant
  /list           show the task list
  /toggle <n>     flip the completed checkbox of task n
  /done <n>       mark task n as done (asks for confirmation)
  /yes, /no       answer a pending confirmation
  /history        show the conversation so far
  /help           show this help
  /quit           exit
Anything else is sent to the assistant.`

func main() {
	var verbose bool
	flag.BoolVar(&verbose, "verbose", false, "log to stderr")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}
	logger := logging.Discard()
	if verbose {
		if logger, err = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
			fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
			os.Exit(2)
		}
	}

	ctx := context.Background()
	built, err := app.Build(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	sess := built.Sessions.Create(built.Persona.ID)

	fmt.Printf("%s (%s mode, %s)\n", boldStyle.Sprint("Sparky to-do assistant"), built.Runtime.Mode(), built.Brain.Name())
	fmt.Println("Type /help for commands.")

	r := &repl{runtime: built.Runtime, sessionID: sess.ID, out: os.Stdout}
	if err := r.run(ctx, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
		os.Exit(1)
	}
}

type repl struct {
	runtime   *taskruntime.Service
	sessionID string
	out       io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, boldStyle.Sprint("\n> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		if quit := r.handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
}

// handle executes one input line and reports whether the REPL should exit.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.chat(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/add":
		res, err := r.runtime.AddTask(r.sessionID, arg)
		if err != nil {
			r.fail(err)
			return false
		}
		noticeStyle.Fprintln(r.out, res.Message)
		r.printTasks(res.Snapshot)
	case "/list":
		snap, err := r.runtime.Snapshot(r.sessionID)
		if err != nil {
			r.fail(err)
			return false
		}
		r.printTasks(snap)
	case "/toggle":
		pos, ok := r.position(arg)
		if !ok {
			return false
		}
		snap, err := r.runtime.Snapshot(r.sessionID)
		if err != nil {
			r.fail(err)
			return false
		}
		completed := pos <= len(snap.Tasks) && !snap.Tasks[pos-1].Completed
		snap, err = r.runtime.SetCompleted(r.sessionID, pos, completed)
		if err != nil {
			r.fail(err)
			return false
		}
		r.printTasks(snap)
	case "/done":
		pos, ok := r.position(arg)
		if !ok {
			return false
		}
		snap, err := r.runtime.MarkDone(r.sessionID, pos)
		if err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintf(r.out, "%s (/yes or /no)\n", snap.Removal.Prompt)
	case "/yes":
		res, err := r.runtime.ConfirmRemoval(r.sessionID)
		if err != nil {
			r.fail(err)
			return false
		}
		if res.Removed {
			noticeStyle.Fprintln(r.out, res.Notice)
		} else {
			fmt.Fprintln(r.out, "Nothing to confirm.")
		}
		r.printTasks(res.Snapshot)
	case "/no":
		snap, err := r.runtime.CancelRemoval(r.sessionID)
		if err != nil {
			r.fail(err)
			return false
		}
		r.printTasks(snap)
	case "/history":
		turns, err := r.runtime.History(r.sessionID)
		if err != nil {
			r.fail(err)
			return false
		}
		for _, t := range turns {
			fmt.Fprintf(r.out, "%s: %s\n", t.Role, t.Content)
		}
	default:
		errorStyle.Fprintf(r.out, "unknown command %s, try /help\n", cmd)
	}
	return false
}

func (r *repl) chat(ctx context.Context, text string) {
	res, err := r.runtime.Chat(ctx, r.sessionID, text)
	if err != nil {
		r.fail(err)
		return
	}
	assistantStyle.Fprintln(r.out, res.Reply)
	if res.Tool == "add_task" || res.Tool == "edit_task" {
		r.printTasks(res.Snapshot)
	}
}

func (r *repl) position(arg string) (int, bool) {
	pos, err := strconv.Atoi(arg)
	if err != nil || pos <= 0 {
		errorStyle.Fprintln(r.out, "expected a task number, e.g. /done 2")
		return 0, false
	}
	return pos, true
}

func (r *repl) printTasks(snap taskruntime.Snapshot) {
	if len(snap.Tasks) == 0 {
		fmt.Fprintln(r.out, "No tasks yet.")
		return
	}
	for _, t := range snap.Tasks {
		if t.Completed {
			doneStyle.Fprintf(r.out, "%d. [x] %s\n", t.Position, t.Text)
			continue
		}
		fmt.Fprintf(r.out, "%d. [ ] %s\n", t.Position, t.Text)
	}
}

func (r *repl) fail(err error) {
	if errors.Is(err, taskruntime.ErrEmptyTask) {
		errorStyle.Fprintln(r.out, taskruntime.EmptyTaskNotice)
		return
	}
	errorStyle.Fprintf(r.out, "error: %v\n", err)
}
