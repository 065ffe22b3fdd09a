//go:build linux

package gxbridge

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/Gurux/gxcommon-go"
	"golang.org/x/sys/unix"
)

type port struct {
	f  *os.File
	fd int
	// Self-pipe: closing w wakes a reader blocked in poll.
	r   *os.File
	rfd int
	w   *os.File
}

// toUnixBaudRate maps a baud rate to the corresponding constant in the unix package.
var toUnixBaudRate = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

func (p *port) isOpen() bool {
	return p.f != nil
}

// getPortNames returns a list of available serial port device paths on Linux.
func getPortNames() ([]string, error) {
	patterns := []string{
		"/dev/ttyS*",
		"/dev/ttyUSB*",
		"/dev/ttyXRUSB*",
		"/dev/ttyACM*",
		"/dev/ttyAMA*",
		"/dev/rfcomm*",
		"/dev/ttyAP*",
	}

	var devices []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, err
		}
		for _, device := range matches {
			name := filepath.Base(device)
			sysPath := filepath.Join("/sys/class/tty", name, "device")

			if _, err := os.Stat(sysPath); err == nil {
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

	// (iflag, oflag, cflag, lflag, ispeed, ospeed, cc) = tcgetattr
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		cfg.s.close()
		return err
	}
	// Raw mode.
	t.Cflag |= unix.CLOCAL | unix.CREAD
	t.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ECHOK | unix.ECHONL | unix.ISIG | unix.IEXTEN
	t.Oflag &^= unix.OPOST | unix.ONLCR | unix.OCRNL
	t.Iflag &^= unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IGNBRK
	t.Cflag &^= unix.CBAUD
	t.Cflag |= speed
	t.Ispeed = speed
	t.Ospeed = speed
	// Databits:
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

	// Parity. CMSPAR selects mark/space.
	const cmspar = 0x40000000
	t.Iflag &^= unix.INPCK | unix.ISTRIP
	t.Cflag &^= unix.PARENB | unix.PARODD | cmspar
	switch cfg.parity {
	case gxcommon.ParityNone:
	case gxcommon.ParityEven:
		t.Cflag |= unix.PARENB
	case gxcommon.ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case gxcommon.ParityMark:
		t.Cflag |= unix.PARENB | cmspar | unix.PARODD
	case gxcommon.ParitySpace:
		t.Cflag |= unix.PARENB | cmspar
	default:
		cfg.s.close()
		return errors.New("invalid parity")
	}

	// No flow control.
	t.Iflag &^= unix.IXON | unix.IXOFF
	t.Cflag &^= unix.CRTSCTS
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		cfg.s.close()
		return err
	}
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
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
		err := p.f.Close()
		p.f = nil
		p.fd = 0
		return err
	}
	return nil
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
		_, err := unix.Poll(pfds, -1)
		if err == unix.EINTR {
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
