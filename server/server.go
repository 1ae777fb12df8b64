package server

import (
	"context"
	"net/http"
	"time"

	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/FusionCross/resolver-lib/settlement"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Settler is the settlement surface the HTTP layer drives. Implemented by
// settlement.Orchestrator; narrowed to an interface so handlers can be tested
// without chains.
type Settler interface {
	DeployEscrows(ctx context.Context, req *settlement.DeployRequest) (*settlement.DeployResult, error)
	RevealAndWithdraw(ctx context.Context, req *settlement.RevealRequest) (*settlement.RevealResult, error)
}

// Server exposes the two settlement operations and a read-only order lookup.
type Server struct {
	settler Settler
	store   types.OrderStore
	logger  *logrus.Logger
	httpSrv *http.Server
}

// NewServer creates the HTTP server bound to the given address.
//
// Parameters:
// - addr: the listen address, e.g. ":8080".
// - settler: the settlement orchestrator.
// - store: the order store for read-only lookups.
// - logger: the logger for request logging.
//
// Returns:
// - *Server: the new server instance.
func NewServer(addr string, settler Settler, store types.OrderStore, logger *logrus.Logger) *Server {
	s := &Server{
		settler: settler,
		store:   store,
		logger:  logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/order", s.handleOrder).Methods(http.MethodPost)
	router.HandleFunc("/order/secret-reveal", s.handleSecretReveal).Methods(http.MethodPost)
	router.HandleFunc("/order/{hash}", s.handleOrderLookup).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.logRequests(router),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
//
// Parameters:
// - ctx: the context controlling the server lifetime.
//
// Returns:
// - error: an error if serving fails for a reason other than shutdown.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.WithField("addr", s.httpSrv.Addr).Info("HTTP server listening")
		errChan <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Wrap(s.httpSrv.Shutdown(shutdownCtx), "failed to shut down HTTP server")
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server failed")
	}
}

// logRequests logs every request with its method, path and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("Request handled")
	})
}
