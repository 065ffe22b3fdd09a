// Package gxbridge connects one serial port to TCP peers.
//
// Bytes read from the serial port are shared with every connected peer, and
// bytes read from a peer are written to the serial port. A typical setup
// serves a kernel debugger line: a console port shows the text output with
// GDB remote protocol packets removed, a GDB port carries the raw stream for
// the debugger, and a raw console port shows everything.
//
// Features
//
//   - Fixed arena of reference counted buffers (GXBufferArena). Data is never
//     copied on fan-out; every peer holds a reference to the same buffer.
//   - Single producer, single consumer ring queue (GXRingQueue) with block mode.
//   - Per endpoint send pipeline (GXSendPipeline) with a bounded backlog and an
//     optional streaming filter.
//   - GDB output filter (GXGdbOutputFilter) that drops "+$...#xx" packets from
//     a stream split at arbitrary buffer boundaries.
//   - Tracing, error and media state callbacks with localized messages.
//
// # Construction
//
//	settings := gxbridge.NewGXSettings()
//	settings.Port = "/dev/ttyUSB0"
//	settings.ConsolePort = 4440
//	settings.GdbPort = 4441
//	bridge, err := gxbridge.NewGXBridgeFromSettings(settings)
//	if err != nil {
//	    // handle invalid settings
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	err = bridge.Run(ctx)
//
// # Backpressure
//
// When the arena runs out of buffers, receiving stalls until buffers are
// released and is retried on every loop iteration. When a send backlog is
// full, the buffer is dropped and counted. A stall is only traced. A drop is
// traced and reported to the error handler as ErrBacklogFull, but it does not
// stop the bridge.
//
// # Notes
//
// The arena may be used from any goroutine. Pipelines, filters and endpoints
// are driven by the single goroutine running GXBridge.Run; transport I/O runs
// on goroutines owned by each endpoint.
package gxbridge
