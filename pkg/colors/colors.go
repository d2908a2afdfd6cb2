package colors

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	// Regular colors
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"

	// Bright colors
	BrightRed     = "\033[91m"
	BrightGreen   = "\033[92m"
	BrightYellow  = "\033[93m"
	BrightBlue    = "\033[94m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
	BrightWhite   = "\033[97m"
)

// Field keys the console formatter consumes instead of printing.
const (
	iconField = "_icon"
	toneField = "_tone"
)

// Options configures the process logger.
type Options struct {
	Level      string // trace|debug|info|warning|error
	Format     string // text|json
	File       string // rotating log file; empty means stdout only
	MaxSizeMB  int
	MaxBackups int
}

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&ConsoleFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init configures the shared logger. Safe to call once at startup.
func Init(opts Options) {
	level, err := logrus.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if opts.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&ConsoleFormatter{})
	}

	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, rotating))
	} else {
		logger.SetOutput(os.Stdout)
	}
}

// Logger exposes the underlying logrus logger for structured fields.
func Logger() *logrus.Logger {
	return logger
}

// SetOutput redirects all output, mostly useful in tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// ConsoleFormatter renders entries as "[15:04:05] icon message" with ANSI colors.
type ConsoleFormatter struct{}

func (f *ConsoleFormatter) Format(e *logrus.Entry) ([]byte, error) {
	icon, _ := e.Data[iconField].(string)
	tone, _ := e.Data[toneField].(string)
	if icon == "" {
		icon, tone = levelStyle(e.Level)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]%s %s%s%s %s%s%s",
		Gray, e.Time.Format("15:04:05"), Reset,
		tone, icon, Reset,
		brighten(tone), e.Message, Reset)

	for k, v := range e.Data {
		if k == iconField || k == toneField {
			continue
		}
		fmt.Fprintf(&b, " %s%s=%v%s", Gray, k, v, Reset)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func levelStyle(level logrus.Level) (string, string) {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return "❌", Red
	case logrus.WarnLevel:
		return "⚠️ ", Yellow
	case logrus.DebugLevel, logrus.TraceLevel:
		return "🔍", Gray
	default:
		return "ℹ ", Cyan
	}
}

func brighten(tone string) string {
	switch tone {
	case Red:
		return BrightRed
	case Green:
		return BrightGreen
	case Yellow:
		return BrightYellow
	case Cyan:
		return BrightCyan
	case Blue:
		return BrightBlue
	case Gray:
		return Gray
	default:
		return White
	}
}

func styled(icon, tone string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{iconField: icon, toneField: tone})
}

// PrintInfo prints informational messages with cyan color
func PrintInfo(format string, args ...interface{}) {
	logger.Infof(format, args...)
}

// PrintSuccess prints success messages with green color
func PrintSuccess(format string, args ...interface{}) {
	styled("✅", Green).Infof(format, args...)
}

// PrintWarning prints warning messages with yellow color
func PrintWarning(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

// PrintError prints error messages with red color
func PrintError(format string, args ...interface{}) {
	logger.Errorf(format, args...)
}

// PrintDebug prints debug messages with gray color
func PrintDebug(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}

// PrintSync prints synchronization engine progress
func PrintSync(format string, args ...interface{}) {
	styled("🔄", Blue).Infof(format, args...)
}

// PrintServer prints server-related messages
func PrintServer(icon, format string, args ...interface{}) {
	styled(icon, Blue).Infof(format, args...)
}

// PrintHeader prints header messages with bold styling
func PrintHeader(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	border := strings.Repeat("═", len([]rune(message))+2)
	fmt.Fprintf(logger.Out, "\n%s%s╔%s╗%s\n", BrightBlue, Bold, border, Reset)
	fmt.Fprintf(logger.Out, "%s%s║ %s ║%s\n", BrightBlue, Bold, message, Reset)
	fmt.Fprintf(logger.Out, "%s%s╚%s╝%s\n\n", BrightBlue, Bold, border, Reset)
}

// PrintSubHeader prints sub-header messages
func PrintSubHeader(format string, args ...interface{}) {
	fmt.Fprintf(logger.Out, "%s%s▶ %s%s\n", BrightMagenta, Bold, fmt.Sprintf(format, args...), Reset)
}

// PrintEndpoint prints API endpoint information
func PrintEndpoint(method, path, description string) {
	var methodColor string
	switch method {
	case "GET":
		methodColor = BrightGreen
	case "POST":
		methodColor = BrightBlue
	case "PUT", "PATCH":
		methodColor = BrightYellow
	case "DELETE":
		methodColor = BrightRed
	default:
		methodColor = White
	}

	fmt.Fprintf(logger.Out, "  %s%-6s%s %s%-36s%s %s%s%s\n",
		methodColor, method, Reset,
		Cyan, path, Reset,
		Gray, description, Reset)
}

// PrintBanner prints the application banner
func PrintBanner() {
	fmt.Fprintf(logger.Out, "\n%s%s  School Asset Server%s\n  %sDevices · Locations · Floor maps%s\n\n",
		BrightCyan, Bold, Reset, BrightYellow, Reset)
}

// PrintShutdown prints shutdown message
func PrintShutdown() {
	fmt.Fprintf(logger.Out, "\n%s%s🛑 School Asset Server shutdown initiated...%s\n", BrightRed, Bold, Reset)
	fmt.Fprintf(logger.Out, "%s%s⏳ Closing backend clients...%s\n\n", Yellow, Bold, Reset)
}
