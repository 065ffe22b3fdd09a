//go:build darwin

package gxbridge

// --------------------------------------------------------------------------
//
//	Gurux Ltd
//
// Filename:        $HeadURL$
//
// Version:         $Revision$,
//
//	$Date$
//	$Author$
//
// # Copyright (c) Gurux Ltd
//
// ---------------------------------------------------------------------------
//
//	DESCRIPTION
//
// This file is a part of Gurux Device Framework.
//
// Gurux Device Framework is Open Source software; you can redistribute it
// and/or modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2 of the License.
// Gurux Device Framework is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU General Public License for more details.
//
// More information of Gurux products: https://www.gurux.org
//
// This code is licensed under the GNU General Public License v2.
// Full text may be retrieved at http://www.gnu.org/licenses/gpl-2.0.txt
// ---------------------------------------------------------------------------

import (
	"errors"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/Gurux/gxcommon-go"
	"golang.org/x/sys/unix"
)

type port struct {
	f   *os.File
	fd  int
	r   *os.File
	rfd int
	w   *os.File
}

// toUnixBaudRate maps a baud rate to the corresponding constant in the unix package.
var toUnixBaudRate = map[int]uint64{
	50:     unix.B50,
	75:     unix.B75,
	110:    unix.B110,
	134:    unix.B134,
	150:    unix.B150,
	200:    unix.B200,
	300:    unix.B300,
	600:    unix.B600,
	1200:   unix.B1200,
	1800:   unix.B1800,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// getPortNames returns a list of available serial port device paths on macOS.
func getPortNames() ([]string, error) {
	patterns := []string{
		"/dev/tty.*",
		"/dev/cu.*",
	}

	var devices []string
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, device := range matches {
			if _, ok := seen[device]; !ok {
				seen[device] = struct{}{}
				devices = append(devices, device)
			}
		}
	}
	return devices, nil
}

func openPort(cfg *GXSerialEndpoint) error {
	speed, ok := toUnixBaudRate[int(cfg.baudRate)]
	if !ok {
		return gxcommon.ErrInvalidArgument
	}
	fd, err := unix.Open(cfg.Port, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0666)
	if err != nil {
		return err
	}

	f := os.NewFile(uintptr(fd), cfg.Port)
	cfg.s = port{f: f, fd: fd}

	t, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	if err != nil {
		cfg.s.close()
		return err
	}
	t.Cflag |= unix.CLOCAL | unix.CREAD
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHONL | unix.ISIG | unix.IEXTEN
	t.Oflag &^= unix.OPOST | unix.ONLCR | unix.OCRNL
	t.Iflag &^= unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IGNBRK
	t.Ispeed = speed
	t.Ospeed = speed
	t.Cflag &^= unix.CSIZE
	switch cfg.dataBits {
	case 5:
		t.Cflag |= unix.CS5
	case 6:
		t.Cflag |= unix.CS6
	case 7:
		t.Cflag |= unix.CS7
	case 8:
		t.Cflag |= unix.CS8
	default:
		cfg.s.close()
		return errors.New("invalid databits (must be 5..8)")
	}

	switch cfg.stopBits {
	case gxcommon.StopBitsOne:
		t.Cflag &^= unix.CSTOPB
	case gxcommon.StopBitsTwo:
		t.Cflag |= unix.CSTOPB
	default:
		cfg.s.close()
		return errors.New("invalid stopbits (must be one or two)")
	}

	t.Iflag &^= unix.INPCK | unix.ISTRIP
	t.Cflag &^= unix.PARENB | unix.PARODD
	switch cfg.parity {
	case gxcommon.ParityNone:
	case gxcommon.ParityEven:
		t.Cflag |= unix.PARENB
	case gxcommon.ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case gxcommon.ParityMark, gxcommon.ParitySpace:
		// No CMSPAR on this system.
		cfg.s.close()
		return errors.New("mark/space parity not supported on this system")
	default:
		cfg.s.close()
		return errors.New("invalid parity")
	}

	t.Iflag &^= unix.IXON | unix.IXOFF
	t.Cflag &^= unix.CRTSCTS
	if err := unix.IoctlSetTermios(fd, unix.TIOCSETA, t); err != nil {
		cfg.s.close()
		return err
	}
	if err := ioctlSetIntPointer(fd, unix.TIOCFLUSH, unix.TCIOFLUSH); err != nil {
		cfg.s.close()
		return err
	}
	cfg.s.r, cfg.s.w, err = os.Pipe()
	if err != nil {
		cfg.s.close()
		return err
	}
	cfg.s.rfd = int(cfg.s.r.Fd())
	_ = unix.SetNonblock(cfg.s.rfd, true)
	return nil
}

func ioctlSetIntPointer(fd int, req uint, value int) error {
	v := value
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(&v)))
	if errno != 0 {
		return errno
	}
	return nil
}

// interrupt wakes a reader blocked in read.
func (p *port) interrupt() {
	if p.w != nil {
		_ = p.w.Close()
		p.w = nil
	}
}

func (p *port) close() error {
	if p == nil {
		return nil
	}
	p.interrupt()
	if p.r != nil {
		_ = p.r.Close()
		p.r = nil
	}
	if p.f != nil {
		f := p.f
		p.f = nil
		p.fd = 0
		return f.Close()
	}
	return nil
}

func (p *port) isOpen() bool {
	return p.f != nil
}

// read waits for data and reads at most len(buf) bytes.
func (p *port) read(buf []byte) (int, error) {
	if p.f == nil || p.r == nil {
		return 0, ErrNotOpen
	}
	pfds := []unix.PollFd{
		{Fd: int32(p.fd), Events: unix.POLLIN},
		{Fd: int32(p.rfd), Events: unix.POLLIN},
	}
	for {
		// An infinite timeout sometimes hangs on close.
		n, err := unix.Poll(pfds, 100)
		if err == unix.EINTR || (err == nil && n == 0) {
			continue
		}
		if err != nil {
			return 0, err
		}
		break
	}
	if (pfds[1].Revents & (unix.POLLIN | unix.POLLHUP)) != 0 {
		return 0, ErrPortClosed
	}
	return p.f.Read(buf)
}

func (p *port) write(data []byte) (int, error) {
	if p.f == nil {
		return 0, ErrNotOpen
	}
	return p.f.Write(data)
}
