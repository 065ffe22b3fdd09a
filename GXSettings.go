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
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Gurux/gxcommon-go"
)

var (
	// ErrPortClosed is returned by a transfer interrupted by Close.
	ErrPortClosed = errors.New("port closed")
	// ErrNotOpen is returned when the port is not open.
	ErrNotOpen = errors.New("port not open")
	// ErrBacklogFull is reported when a send backlog overflows and buffers are dropped.
	ErrBacklogFull = errors.New("send backlog full")
)

const (
	// DefaultBaudRate is used when the port argument has no baud rate.
	DefaultBaudRate gxcommon.BaudRate = 115200
	// DefaultHost is the address the network ports bind to.
	DefaultHost = "localhost"

	minBaudRate = 100
	maxBaudRate = 5000000
)

// GXSettings holds the bridge configuration.
type GXSettings struct {
	// Serial port name.
	Port     string
	BaudRate gxcommon.BaudRate
	DataBits int
	Parity   gxcommon.Parity
	StopBits gxcommon.StopBits
	// Address the network ports bind to.
	Host string
	// Console port with the GDB output filter. Zero disables it.
	ConsolePort int
	// GDB port. Zero disables it.
	GdbPort int
	// Unfiltered console port. Zero disables it.
	RawPort int
	// Number of arena buffers.
	Buffers int
	Trace   gxcommon.TraceLevel
}

// NewGXSettings returns the default settings: 115200 8N1 on localhost.
func NewGXSettings() *GXSettings {
	return &GXSettings{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   gxcommon.ParityNone,
		StopBits: gxcommon.StopBitsOne,
		Host:     DefaultHost,
		Buffers:  DefaultBufferCount,
	}
}

// ParsePortArgument splits a "name[:baudrate]" argument.
func ParsePortArgument(value string) (string, gxcommon.BaudRate, error) {
	name, baud, found := strings.Cut(value, ":")
	if name == "" {
		return "", 0, errors.New("invalid serial port")
	}
	if !found {
		return name, DefaultBaudRate, nil
	}
	v, err := strconv.ParseUint(baud, 10, 32)
	if err != nil || v < minBaudRate || v > maxBaudRate {
		return "", 0, fmt.Errorf("invalid baud rate value %q", baud)
	}
	return name, gxcommon.BaudRate(v), nil
}

// Validate checks the settings.
func (s *GXSettings) Validate() error {
	if s.Port == "" {
		return errors.New("no serial port selected")
	}
	if s.BaudRate < minBaudRate || s.BaudRate > maxBaudRate {
		return fmt.Errorf("invalid baud rate %d: %w", s.BaudRate, gxcommon.ErrInvalidArgument)
	}
	if s.DataBits < 5 || s.DataBits > 8 {
		return fmt.Errorf("invalid data bits %d: %w", s.DataBits, gxcommon.ErrInvalidArgument)
	}
	if s.Buffers <= 0 {
		return fmt.Errorf("invalid buffer count %d: %w", s.Buffers, gxcommon.ErrInvalidArgument)
	}
	seen := make(map[int]string)
	for _, p := range []struct {
		name string
		port int
	}{{"console", s.ConsolePort}, {"gdb", s.GdbPort}, {"raw", s.RawPort}} {
		if p.port == 0 {
			continue
		}
		if p.port < 0 || p.port > 65535 {
			return fmt.Errorf("invalid %s port %d: %w", p.name, p.port, gxcommon.ErrInvalidArgument)
		}
		if other, ok := seen[p.port]; ok {
			return fmt.Errorf("%s and %s use the same port %d", other, p.name, p.port)
		}
		seen[p.port] = p.name
	}
	if len(seen) == 0 {
		return errors.New("at least one network port must be set")
	}
	return nil
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

// GetSettings returns the settings as an XML fragment.
func (s *GXSettings) GetSettings() string {
	var b strings.Builder
	if s.Port != "" {
		fmt.Fprintf(&b, "<Port>%s</Port>\n", xmlEscape(s.Port))
	}
	if s.BaudRate != 0 {
		fmt.Fprintf(&b, "<Bps>%d</Bps>\n", s.BaudRate)
	}
	if s.DataBits != 0 {
		fmt.Fprintf(&b, "<ByteSize>%d</ByteSize>\n", s.DataBits)
	}
	if s.StopBits != 0 {
		fmt.Fprintf(&b, "<StopBits>%s</StopBits>\n", s.StopBits.String())
	}
	if s.Parity != 0 {
		fmt.Fprintf(&b, "<Parity>%s</Parity>\n", s.Parity.String())
	}
	if s.Host != "" {
		fmt.Fprintf(&b, "<Host>%s</Host>\n", xmlEscape(s.Host))
	}
	if s.ConsolePort != 0 {
		fmt.Fprintf(&b, "<ConsolePort>%d</ConsolePort>\n", s.ConsolePort)
	}
	if s.GdbPort != 0 {
		fmt.Fprintf(&b, "<GdbPort>%d</GdbPort>\n", s.GdbPort)
	}
	if s.RawPort != 0 {
		fmt.Fprintf(&b, "<RawPort>%d</RawPort>\n", s.RawPort)
	}
	if s.Buffers != 0 {
		fmt.Fprintf(&b, "<Buffers>%d</Buffers>\n", s.Buffers)
	}
	if s.Trace != 0 {
		fmt.Fprintf(&b, "<Trace>%s</Trace>\n", s.Trace.String())
	}
	return b.String()
}

// SetSettings reads the settings from an XML fragment. Missing elements keep their values.
func (s *GXSettings) SetSettings(value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	dec := xml.NewDecoder(strings.NewReader("<root>" + value + "</root>"))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local == "root" {
			continue
		}
		var v string
		if err := dec.DecodeElement(&v, &se); err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		switch se.Name.Local {
		case "Port":
			s.Port = v
		case "Bps":
			s.BaudRate, err = gxcommon.BaudRateParse(v)
		case "ByteSize":
			s.DataBits, err = atoi(se.Name.Local, v)
		case "StopBits":
			s.StopBits, err = gxcommon.StopBitsParse(v)
		case "Parity":
			s.Parity, err = gxcommon.ParityParse(v)
		case "Host":
			s.Host = v
		case "ConsolePort":
			s.ConsolePort, err = atoi(se.Name.Local, v)
		case "GdbPort":
			s.GdbPort, err = atoi(se.Name.Local, v)
		case "RawPort":
			s.RawPort, err = atoi(se.Name.Local, v)
		case "Buffers":
			s.Buffers, err = atoi(se.Name.Local, v)
		case "Trace":
			s.Trace, err = gxcommon.TraceLevelParse(v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func atoi(name, value string) (int, error) {
	ret, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %v", name, err)
	}
	return ret, nil
}
