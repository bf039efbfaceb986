package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/peterh/liner"

	scripting "github.com/mgerhold/chatbot2k-sub000"
)

const (
	appName     = "chatscript"
	historyFile = ".chatscript_history"
	promptMain  = "==> "
	promptCont  = "... "
)

var (
	banner   = fmt.Sprintf("ChatScript %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", scripting.Version)
	helpText = `
REPL commands:
  :quit                    Exit the REPL
  :help                    Show this help
  :define <name> <source>  Define a named script callable as '<name>'(...)
  :scripts                 List defined scripts
`
)

func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
func blue(s string) string { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(scripting.Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`ChatScript %s

Usage:
  %s run <file.cs> [args...]   Run a script with positional arguments.
  %s repl                      Start the REPL.
  %s version                   Print the version.

`, scripting.Version, appName, appName, appName)
}

// session bundles an engine with a persistent store and a set of named
// scripts so scripts can call each other by name.
type session struct {
	engine  *scripting.Engine
	store   scripting.PersistentStore
	scripts map[string]string
}

func newSession() *session {
	return &session{
		engine:  scripting.NewEngine(nil),
		store:   scripting.NewKVPersistentStore(mapdb.NewMapDB()),
		scripts: make(map[string]string),
	}
}

// callScript resolves dynamic calls against the session's defined scripts.
func (s *session) callScript(ctx context.Context, name string, arguments ...string) (string, error) {
	source, ok := s.scripts[name]
	if !ok {
		return "", fmt.Errorf("unknown script or builtin '%s'", name)
	}
	script, err := s.engine.Compile(name, source)
	if err != nil {
		return "", scripting.WrapErrorWithName(err, name, source)
	}
	output, _, err := s.engine.Execute(ctx, script, s.store, arguments, s.callScript)
	if err != nil {
		return "", err
	}
	return output, nil
}

func (s *session) run(name, source string, arguments []string) (string, bool, error) {
	script, err := s.engine.Compile(name, source)
	if err != nil {
		return "", false, scripting.WrapErrorWithName(err, name, source)
	}
	output, printed, err := s.engine.Execute(context.Background(), script, s.store, arguments, s.callScript)
	if err != nil {
		return "", false, scripting.WrapErrorWithName(err, name, source)
	}
	return output, printed, nil
}

func cmdRun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run <file.cs> [args...]\n", appName)
		return 2
	}

	file := args[0]
	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, file, err)
		return 1
	}

	sess := newSession()
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	output, printed, err := sess.run(name, string(src), args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	if printed {
		fmt.Println(output)
	}
	return 0
}

func cmdRepl(_ []string) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	sess := newSession()

	for {
		code, ok := readByParseProbe(sess.engine, ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ":") {
			if quit := replCommand(sess, trimmed); quit {
				return 0
			}
			ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
			continue
		}

		output, printed, err := sess.run("repl", code, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(err.Error()))
			continue
		}
		if printed {
			fmt.Println(blue(output))
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return 0
}

// replCommand handles colon commands; it reports whether the REPL should
// exit.
func replCommand(sess *session, input string) bool {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case ":quit":
		return true
	case ":help":
		fmt.Print(helpText)
	case ":define":
		if len(fields) < 3 {
			fmt.Println("usage: :define <name> <source>")
			return false
		}
		name := fields[1]
		rest := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))
		source := strings.TrimSpace(strings.TrimPrefix(rest, name))
		if _, err := sess.engine.Compile(name, source); err != nil {
			fmt.Fprintln(os.Stderr, red(scripting.WrapErrorWithName(err, name, source).Error()))
			return false
		}
		sess.scripts[name] = source
		fmt.Printf("defined script '%s'\n", name)
	case ":scripts":
		if len(sess.scripts) == 0 {
			fmt.Println("no scripts defined")
			return false
		}
		for name := range sess.scripts {
			fmt.Println(name)
		}
	default:
		fmt.Println("unknown command. Type :help for help.")
	}
	return false
}

// readByParseProbe keeps prompting for continuation lines while the input
// parses as incomplete (a parse error at end of input).
func readByParseProbe(engine *scripting.Engine, ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		trimmed := strings.TrimSpace(src)
		if trimmed == "" || strings.HasPrefix(trimmed, ":") {
			return src, true
		}
		if _, err := engine.Compile("repl", src); isIncomplete(err) {
			continue
		}
		return src, true
	}
}

// isIncomplete reports whether err is a parse error caused by running out of
// input, which means more lines may complete the script.
func isIncomplete(err error) bool {
	var parseErr *scripting.ParseError
	if !errors.As(err, &parseErr) {
		return false
	}
	return strings.Contains(parseErr.Msg, "end of input")
}
