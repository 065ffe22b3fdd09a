package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Gurux/gxbridge-go"
	"github.com/Gurux/gxcommon-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
	"golang.org/x/text/language"
)

var (
	port         = flag.String("S", "", "Serial port name[:baudrate]. Example: /dev/ttyUSB0:115200")
	baudRate     = flag.Int("b", 0, "Baud rate. Overrides the baud rate of -S.")
	dataBits     = flag.Int("d", 0, "DataBits (5, 6, 7, 8)")
	parity       = flag.String("p", "", "Parity (None, Odd, Even, Mark, Space)")
	stopBits     = flag.String("s", "", "Stop bits (One, Two)")
	consolePort  = flag.Int("c", 0, "TCP port for the console without GDB packets.")
	gdbPort      = flag.Int("g", 0, "TCP port for GDB.")
	rawPort      = flag.Int("r", 0, "TCP port for the unfiltered console.")
	host         = flag.String("host", "", "Address the TCP ports bind to.")
	buffers      = flag.Int("n", 0, "Number of buffers.")
	t            = flag.String("t", "", "Trace level.")
	lang         = flag.String("lang", "", "Used language.")
	settingsFile = flag.String("settings", "", "XML settings file.")
)

// traced is implemented by the bridge and its endpoints.
type traced interface {
	SetOnTrace(value gxbridge.TraceEventHandler)
	SetOnError(value gxbridge.ErrorEventHandler)
	SetOnMediaStateChange(value gxbridge.MediaStateHandler)
	SetTrace(traceLevel gxcommon.TraceLevel) error
	Localize(tag language.Tag)
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	if term.IsTerminal(int(os.Stderr.Fd())) {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), zapcore.DebugLevel)
	return zap.New(core)
}

func loadSettings() (*gxbridge.GXSettings, error) {
	settings := gxbridge.NewGXSettings()
	if *settingsFile != "" {
		data, err := os.ReadFile(*settingsFile)
		if err != nil {
			return nil, err
		}
		if err := settings.SetSettings(string(data)); err != nil {
			return nil, fmt.Errorf("invalid settings file %s: %w", *settingsFile, err)
		}
	}
	if *port != "" {
		name, br, err := gxbridge.ParsePortArgument(*port)
		if err != nil {
			return nil, err
		}
		settings.Port = name
		settings.BaudRate = br
	}
	if *baudRate != 0 {
		settings.BaudRate = gxcommon.BaudRate(*baudRate)
	}
	if *dataBits != 0 {
		settings.DataBits = *dataBits
	}
	if *parity != "" {
		v, err := gxcommon.ParityParse(*parity)
		if err != nil {
			return nil, fmt.Errorf("error parsing parity: %w", err)
		}
		settings.Parity = v
	}
	if *stopBits != "" {
		v, err := gxcommon.StopBitsParse(*stopBits)
		if err != nil {
			return nil, fmt.Errorf("error parsing stop bits: %w", err)
		}
		settings.StopBits = v
	}
	if *consolePort != 0 {
		settings.ConsolePort = *consolePort
	}
	if *gdbPort != 0 {
		settings.GdbPort = *gdbPort
	}
	if *rawPort != 0 {
		settings.RawPort = *rawPort
	}
	if *host != "" {
		settings.Host = *host
	}
	if *buffers != 0 {
		settings.Buffers = *buffers
	}
	if *t != "" {
		tl, err := gxcommon.TraceLevelParse(*t)
		if err != nil {
			return nil, fmt.Errorf("error parsing trace level: %w", err)
		}
		settings.Trace = tl
	}
	return settings, nil
}

func main() {
	flag.Parse()
	log := newLogger()
	defer func() {
		_ = log.Sync()
	}()

	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
	if settings.Port == "" {
		flag.PrintDefaults()
		return
	}
	bridge, err := gxbridge.NewGXBridgeFromSettings(settings)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		flag.PrintDefaults()
		os.Exit(2)
	}

	var tag language.Tag
	if *lang != "" {
		tag, err = language.Parse(*lang)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error parsing language:", err)
			os.Exit(2)
		}
	}
	all := []any{bridge, bridge.Serial()}
	for _, p := range bridge.Peers() {
		all = append(all, p)
	}
	for _, it := range all {
		m, ok := it.(traced)
		if !ok {
			continue
		}
		if *lang != "" {
			m.Localize(tag)
		}
		_ = m.SetTrace(settings.Trace)
		m.SetOnTrace(func(sender string, e gxcommon.TraceEventArgs) {
			log.Info(e.String(), zap.String("source", sender))
		})
		m.SetOnError(func(sender string, err error) {
			log.Error("error", zap.String("source", sender), zap.Error(err))
		})
		m.SetOnMediaStateChange(func(sender string, e gxcommon.MediaStateEventArgs) {
			log.Debug("media state change", zap.String("source", sender), zap.String("state", e.State().String()))
		})
	}

	log.Info("Serial-Network bridge",
		zap.String("port", settings.Port),
		zap.Int("baudRate", int(settings.BaudRate)),
		zap.Int("console", settings.ConsolePort),
		zap.Int("gdb", settings.GdbPort),
		zap.Int("raw", settings.RawPort))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := bridge.Run(ctx); err != nil {
		log.Error("bridge stopped", zap.Error(err))
		ret, perr := gxbridge.GetPortNames()
		if perr != nil {
			log.Error("failed to get available serial ports", zap.Error(perr))
		} else {
			log.Info("available serial ports: " + strings.Join(ret, ","))
		}
		os.Exit(1)
	}
	log.Info("Exit")
}
