// Copyright (c) 2024-2025 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"sync"
	"time"
)

// portToLocalHostAddr prepends a default host of 127.0.0.1 when the provided
// address is solely a port number.
func portToLocalHostAddr(addr string) string {
	if _, err := strconv.Atoi(addr); err == nil {
		addr = net.JoinHostPort("127.0.0.1", addr)
	}
	return addr
}

// validateProfileAddr ensures the provided address is of the form "host:port"
// and that the port is between 1024 and 65535.
func validateProfileAddr(addr string) error {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if port, _ := strconv.Atoi(portStr); port < 1024 || port > 65535 {
		str := "address %q: port must be between 1024 and 65535"
		return fmt.Errorf(str, addr)
	}
	return nil
}

// profileServer serves the pprof profiling endpoints registered on the default
// HTTP mux.
type profileServer struct {
	wg     sync.WaitGroup
	mtx    sync.Mutex
	server *http.Server
	addr   string
}

// Start binds a listener to the provided address and serves the profiling
// endpoints on it in the background.  It has no effect when the server is
// already running.
//
// It is the caller's responsibility to call Stop to shutdown the server.
func (s *profileServer) Start(listenAddr string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.server != nil {
		return nil
	}

	listenAddr = portToLocalHostAddr(listenAddr)
	if err := validateProfileAddr(listenAddr); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", listenAddr, err)
	}

	s.server = &http.Server{
		Addr:              listenAddr,
		ReadHeaderTimeout: time.Second * 3,
	}
	s.addr = listener.Addr().String()
	ltsdLog.Infof("Profiling server listening on %s", s.addr)
	s.wg.Add(1)
	go func(httpServer *http.Server) {
		defer s.wg.Done()

		err := httpServer.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			ltsdLog.Errorf("Profiling server listening on %s exited with "+
				"unexpected error: %v", listener.Addr(), err)
		}
	}(s.server)

	return nil
}

// Stop immediately closes the listener and any connections to the profile
// server.  It has no effect when the server is not running.
func (s *profileServer) Stop() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.server == nil {
		return nil
	}

	err := s.server.Close()
	s.server = nil
	s.addr = ""
	s.wg.Wait()
	if err != nil {
		ltsdLog.Errorf("Profiling server stopped with unexpected error: %v",
			err)
		return err
	}

	ltsdLog.Info("Profiling server stopped")
	return nil
}

// Addr returns the address the profile server is listening on or an empty
// string when it is not running.
func (s *profileServer) Addr() string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.addr
}
