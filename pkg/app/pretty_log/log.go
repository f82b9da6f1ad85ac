package pretty_log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

const (
	bold       = "\033[1m"
	brightBlue = "\033[94m"
	orange     = "\033[38;5;208m"
	grey       = "\033[90m"
	green      = "\033[32m"
	yellow     = "\033[33m"
	red        = "\033[31m"
	cyan       = "\033[36m"
	reset      = "\033[0m"
)

// Logger prints timestamped, colored lines to its writer.
// A single Logger is created in main and handed to every component that logs.
type Logger struct {
	out    io.Writer
	level  Level
	colors bool

	mut   sync.Mutex
	tasks map[string]string
}

// New creates a logger writing to out. Colors are only used when out is a terminal.
func New(out io.Writer, level Level) *Logger {
	colors := false
	if f, ok := out.(*os.File); ok {
		colors = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		out:    out,
		level:  level,
		colors: colors,
		tasks:  make(map[string]string),
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

func (l *Logger) SetLevel(level Level) {
	l.mut.Lock()
	l.level = level
	l.mut.Unlock()
}

func (l *Logger) paint(color, text string) string {
	if !l.colors {
		return text
	}
	return color + text + reset
}

func (l *Logger) print(line string) {
	now := time.Now().Format("2006/01/02 15:04:05")

	l.mut.Lock()
	defer l.mut.Unlock()
	fmt.Fprintf(l.out, "[%s] %s\n", now, line)
}

func (l *Logger) log(level Level, color string, format string, a ...interface{}) {
	if level < l.level {
		return
	}
	msg := strings.TrimSuffix(fmt.Sprintf(format, a...), "\n")
	l.print(l.paint(color, fmt.Sprintf("%-5s %s", level.String(), msg)))
}

func (l *Logger) Debugf(format string, a ...interface{}) {
	l.log(LevelDebug, grey, format, a...)
}

func (l *Logger) Infof(format string, a ...interface{}) {
	l.log(LevelInfo, cyan, format, a...)
}

func (l *Logger) Warnf(format string, a ...interface{}) {
	l.log(LevelWarn, yellow, format, a...)
}

func (l *Logger) Errorf(format string, a ...interface{}) {
	l.log(LevelError, red, format, a...)
}

// TaskGroup prints the title of a group of tasks in bright blue color.
func (l *Logger) TaskGroup(format string, a ...interface{}) {
	if LevelInfo < l.level {
		return
	}
	l.print(l.paint(brightBlue+bold, fmt.Sprintf(format, a...)))
}

// BeginTask prints the beginning of a task with its name in orange and returns its id.
func (l *Logger) BeginTask(format string, a ...interface{}) string {
	taskName := fmt.Sprintf(format, a...)

	id := uuid.NewString()
	l.mut.Lock()
	l.tasks[id] = taskName
	l.mut.Unlock()

	if LevelInfo >= l.level {
		l.print(l.paint(orange, taskName) + " " + l.paint(grey, "..."))
	}

	return id
}

// CompleteTask prints the task name in green and forgets the task.
func (l *Logger) CompleteTask(id string) {
	name := l.endTask(id)
	if LevelInfo < l.level {
		return
	}
	l.print(l.paint(green, name+" done"))
}

// FailTask prints the task name in red and forgets the task.
func (l *Logger) FailTask(id string) {
	name := l.endTask(id)
	if LevelError < l.level {
		return
	}
	l.print(l.paint(red, name+" failed"))
}

func (l *Logger) endTask(id string) string {
	l.mut.Lock()
	defer l.mut.Unlock()

	name := l.tasks[id]
	delete(l.tasks, id)
	return name
}

// TaskResult prints the result of a task in cyan color.
func (l *Logger) TaskResult(format string, a ...interface{}) {
	if LevelInfo < l.level {
		return
	}
	format = strings.TrimSuffix(format, "\n")
	l.print(l.paint(cyan, fmt.Sprintf(format, a...)))
}

// TaskResultBad prints the result of a task in red color.
func (l *Logger) TaskResultBad(format string, a ...interface{}) {
	if LevelError < l.level {
		return
	}
	format = strings.TrimSuffix(format, "\n")
	l.print(l.paint(red, fmt.Sprintf(format, a...)))
}

// TaskResultList prints the result that is a string list
func (l *Logger) TaskResultList(list []string) {
	if LevelInfo < l.level {
		return
	}
	for _, item := range list {
		if item == "" {
			continue
		}
		l.print(l.paint(cyan, " - "+strings.TrimSuffix(item, "\n")))
	}
}

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}
