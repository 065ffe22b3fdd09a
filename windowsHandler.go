//go:build windows

package gxbridge

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/Gurux/gxcommon-go"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

type port struct {
	h       windows.Handle
	ovRead  windows.Overlapped
	ovWrite windows.Overlapped
	closing windows.Handle
}

func (p *port) isOpen() bool {
	return p != nil && p.h != 0 && p.h != windows.InvalidHandle
}

// getPortNames retrieves the list of available serial port names on a Windows system by querying the registry.
func getPortNames() ([]string, error) {
	const path = `HARDWARE\DEVICEMAP\SERIALCOMM`

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
	if err != nil {
		if err == registry.ErrNotExist {
			return []string{}, nil
		}
		return nil, err
	}
	defer func() {
		_ = key.Close()
	}()

	valueNames, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, name := range valueNames {
		port, _, err := key.GetStringValue(name)
		if err == nil {
			ports = append(ports, port)
		}
	}
	return ports, nil
}

const (
	dcbFBinary         = 1 << 0
	dcbFParity         = 1 << 1
	dcbFOutxCtsFlow    = 1 << 2
	dcbFOutX           = 1 << 8
	dcbFInX            = 1 << 9
	dcbFErrorChar      = 1 << 10
	dcbFNull           = 1 << 11
	dcbFAbortOnError   = 1 << 14
	dcbFDtrControlMask = 0x3 << 4  // bits 4-5
	dcbFRtsControlMask = 0x3 << 12 // bits 12-13
)

// DCB stop bit values.
const (
	oneStopBit  = 0
	twoStopBits = 2
)

// rawFlags sets the DCB to binary mode without any flow control.
func rawFlags(d *windows.DCB, parity bool) {
	d.Flags &^= dcbFOutxCtsFlow | dcbFOutX | dcbFInX | dcbFNull | dcbFErrorChar | dcbFAbortOnError |
		dcbFDtrControlMask | dcbFRtsControlMask | dcbFParity
	d.Flags |= dcbFBinary
	if parity {
		d.Flags |= dcbFParity
	}
}

func (p *port) updateSettings(cfg *GXSerialEndpoint) error {
	var d windows.DCB
	d.DCBlength = uint32(unsafe.Sizeof(d))
	if err := windows.GetCommState(p.h, &d); err != nil {
		return fmt.Errorf("GetCommState failed: %w", err)
	}
	d.BaudRate = uint32(cfg.baudRate)
	d.ByteSize = byte(cfg.dataBits)
	d.Parity = byte(cfg.parity)
	switch cfg.stopBits {
	case gxcommon.StopBitsOne:
		d.StopBits = oneStopBit
	case gxcommon.StopBitsTwo:
		d.StopBits = twoStopBits
	default:
		return gxcommon.ErrInvalidArgument
	}
	rawFlags(&d, d.Parity != 0)
	if err := windows.SetCommState(p.h, &d); err != nil {
		return fmt.Errorf("SetCommState failed: %w", err)
	}
	return nil
}

func openPort(cfg *GXSerialEndpoint) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("invalid serial port name")
	}

	cfg.s = port{}

	closing, err := windows.CreateEvent(nil, 1, 0, nil) // manual-reset
	if err != nil {
		return fmt.Errorf("CreateEvent(closing) failed: %w", err)
	}
	cfg.s.closing = closing

	path := `\\.\` + cfg.Port
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("failed to open port %q: %w", cfg.Port, err)
	}
	cfg.s.h = h

	er, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("CreateEvent(read) failed: %w", err)
	}
	cfg.s.ovRead.HEvent = er

	ew, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("CreateEvent(write) failed: %w", err)
	}
	cfg.s.ovWrite.HEvent = ew

	if err := cfg.s.updateSettings(cfg); err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("failed to update serial port settings: %w", err)
	}

	if err := windows.PurgeComm(cfg.s.h,
		windows.PURGE_TXCLEAR|windows.PURGE_TXABORT|windows.PURGE_RXCLEAR|windows.PURGE_RXABORT,
	); err != nil {
		_ = cfg.s.close()
		return fmt.Errorf("PurgeComm failed: %w", err)
	}
	return nil
}

func (p *port) getBytesToRead() (int, error) {
	var flags uint32
	var st windows.ComStat
	if err := windows.ClearCommError(p.h, &flags, &st); err != nil {
		return 0, fmt.Errorf("getBytesToRead failed: %w", err)
	}
	return int(st.CBInQue), nil
}

// wait blocks until the overlapped operation ov finishes or the port is closing.
func (p *port) wait(ov *windows.Overlapped) (uint32, error) {
	handles := []windows.Handle{p.closing, ov.HEvent}
	idx, err := windows.WaitForMultipleObjects(handles, false, windows.INFINITE)
	if err != nil {
		return 0, fmt.Errorf("wait failed: %w", err)
	}
	if idx == windows.WAIT_OBJECT_0 {
		_ = windows.CancelIoEx(p.h, ov)
		var n uint32
		_ = windows.GetOverlappedResult(p.h, ov, &n, true)
		return 0, ErrPortClosed
	}
	var n uint32
	if err := windows.GetOverlappedResult(p.h, ov, &n, true); err != nil {
		if errors.Is(err, windows.ERROR_OPERATION_ABORTED) {
			return 0, ErrPortClosed
		}
		return 0, err
	}
	return n, nil
}

// read waits for data and reads at most len(buf) bytes.
func (p *port) read(buf []byte) (int, error) {
	if !p.isOpen() {
		return 0, ErrNotOpen
	}
	for {
		count, err := p.getBytesToRead()
		if err != nil {
			return 0, err
		}
		if count == 0 {
			// Block for the first byte.
			count = 1
		}
		if count > len(buf) {
			count = len(buf)
		}
		var n uint32
		_ = windows.ResetEvent(p.ovRead.HEvent)
		err = windows.ReadFile(p.h, buf[:count], &n, &p.ovRead)
		if err != nil && !errors.Is(err, windows.ERROR_IO_PENDING) {
			return 0, fmt.Errorf("read failed: %w", err)
		}
		if err != nil {
			n, err = p.wait(&p.ovRead)
			if err != nil {
				return 0, err
			}
		}
		if n != 0 {
			return int(n), nil
		}
	}
}

func (p *port) write(data []byte) (int, error) {
	if !p.isOpen() {
		return 0, ErrNotOpen
	}
	if len(data) == 0 {
		return 0, nil
	}
	var n uint32
	_ = windows.ResetEvent(p.ovWrite.HEvent)
	err := windows.WriteFile(p.h, data, &n, &p.ovWrite)
	if err == nil {
		return int(n), nil
	}
	if !errors.Is(err, windows.ERROR_IO_PENDING) {
		return 0, fmt.Errorf("write failed: %w", err)
	}
	n, err = p.wait(&p.ovWrite)
	return int(n), err
}

// interrupt wakes the goroutines blocked in read or write.
func (p *port) interrupt() {
	if p.closing != 0 {
		_ = windows.SetEvent(p.closing)
	}
}

func (p *port) close() error {
	if p == nil {
		return nil
	}
	p.interrupt()
	if p.h != 0 && p.h != windows.InvalidHandle {
		_ = windows.CancelIoEx(p.h, nil)
	}
	if p.ovRead.HEvent != 0 {
		_ = windows.CloseHandle(p.ovRead.HEvent)
		p.ovRead.HEvent = 0
	}
	if p.ovWrite.HEvent != 0 {
		_ = windows.CloseHandle(p.ovWrite.HEvent)
		p.ovWrite.HEvent = 0
	}
	var err error
	if p.h != 0 {
		err = windows.CloseHandle(p.h)
		p.h = 0
	}
	if p.closing != 0 {
		_ = windows.CloseHandle(p.closing)
		p.closing = 0
	}
	return err
}
