package events

import (
	"errors"
	"time"

	ierr "github.com/mark3labs/latch/internal/errors"
	"github.com/mark3labs/latch/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const (
	readyTimeout    = 4 * time.Second
	drainTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// startEmbedded boots an embedded NATS server with JetStream storage
// under dataDir. The server binds no network ports; all traffic stays
// in-process.
func startEmbedded(dataDir string) (*server.Server, error) {
	logger.Debug("Starting embedded NATS server with store dir: %s", dataDir)

	opts := &server.Options{
		JetStream:  true,
		StoreDir:   dataDir,
		DontListen: true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, err
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		return nil, errors.New("nats server failed to start within timeout")
	}
	return ns, nil
}

// connectInProcess opens a connection that talks to the embedded server
// directly, without a network listener.
func connectInProcess(ns *server.Server) (*nats.Conn, error) {
	return nats.Connect("", nats.InProcessServer(ns))
}

// stop drains the connection, then shuts the server down. Both steps
// are bounded so a wedged stream cannot hang process exit.
func stop(nc *nats.Conn, ns *server.Server) error {
	if nc != nil {
		drained := make(chan error, 1)
		go func() {
			drained <- nc.Drain()
		}()

		select {
		case err := <-drained:
			if err != nil {
				logger.Warn("Journal drain failed, forcing close: %v", err)
				nc.Close()
			}
		case <-time.After(drainTimeout):
			logger.Warn("Journal drain timed out, forcing close")
			nc.Close()
		}
	}

	if ns != nil {
		ns.Shutdown()

		done := make(chan struct{})
		go func() {
			ns.WaitForShutdown()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			// The stream is flushed by the drain above; a slow exit is
			// not worth failing the command over.
			return ierr.NewTransientError("journal shutdown", errors.New("timed out waiting for server exit"))
		}
	}
	return nil
}
