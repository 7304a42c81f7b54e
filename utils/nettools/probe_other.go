//go:build !darwin && !linux
// +build !darwin,!linux

package nettools

import "net"

func probe(net.Conn) bool { return true }
