package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TemirB/merch-checkout/internal/application/service"
	"github.com/TemirB/merch-checkout/internal/config"
	"github.com/TemirB/merch-checkout/internal/domain"
	"github.com/TemirB/merch-checkout/internal/observability"
)

//go:generate mockgen -source httpapi.go -destination=httpapi_mock_test.go -package=httpapi

const maxBodyBytes = 1 << 20

type Checkout interface {
	PublicConfig() config.Public
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (json.RawMessage, service.CheckoutStats, error)
	CaptureOrder(ctx context.Context, in service.CaptureOrderInput) (json.RawMessage, service.CheckoutStats, error)
	Orders(ctx context.Context) ([]domain.Order, error)
	OrderByIDWithStats(ctx context.Context, id int64) (*domain.Order, service.LookupStats, error)
}

type Server struct {
	service   Checkout
	router    chi.Router
	staticDir string
	logger    *zap.Logger
	metrics   observability.Metrics
}

func New(service Checkout, staticDir string, logger *zap.Logger, metrics observability.Metrics) *Server {
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	s := &Server{
		service:   service,
		router:    chi.NewRouter(),
		staticDir: staticDir,
		logger:    logger,
		metrics:   metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		allowAnyOrigin,
		ObserveRequests(s.logger, s.metrics),
	)

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/config", s.getConfig)
		r.Post("/create-order", s.createOrder)
		r.Post("/capture-order", s.captureOrder)
	})

	s.router.Get("/orders", s.listOrders)
	s.router.Get("/orders/{id}", s.getOrder)

	s.router.Get("/", s.serveStatic("index.html"))
	s.router.Get("/merch/", s.serveStatic(filepath.Join("merch", "index.html")))
	s.router.Get("/merch/index.html", s.serveStatic(filepath.Join("merch", "index.html")))

	if exp, ok := s.metrics.(interface{ Handler() http.Handler }); ok {
		s.router.Handle("/metrics", exp.Handler())
	}
}

func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.PublicConfig())
}

type createOrderRequest struct {
	Total    decimal.NullDecimal `json:"total"`
	Currency string              `json:"currency"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	order, st, err := s.service.CreateOrder(r.Context(), service.CreateOrderInput{
		Total:    req.Total,
		Currency: req.Currency,
	})
	observability.AppendServerTiming(w, "paypal", st.ProcessorMs, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// captureOrderRequest accepts both spellings of the order id used by the
// storefront pages.
type captureOrderRequest struct {
	OrderID      string          `json:"orderID"`
	OrderIDCamel string          `json:"orderId"`
	Name         string          `json:"name"`
	Address      string          `json:"address"`
	Items        json.RawMessage `json:"items"`
	Pieces       json.RawMessage `json:"pieces"`
}

func (s *Server) captureOrder(w http.ResponseWriter, r *http.Request) {
	var req captureOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	orderID := req.OrderID
	if orderID == "" {
		orderID = req.OrderIDCamel
	}

	capture, st, err := s.service.CaptureOrder(r.Context(), service.CaptureOrderInput{
		OrderID: orderID,
		Name:    req.Name,
		Address: req.Address,
		Items:   req.Items,
		Pieces:  req.Pieces,
	})
	observability.AppendServerTiming(w, "paypal", st.ProcessorMs, "")
	observability.AppendServerTiming(w, "db_write", st.DBWriteMs, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, capture)
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.service.Orders(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "order id must be a positive integer"})
		return
	}

	order, st, err := s.service.OrderByIDWithStats(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	observability.AppendServerTiming(w, "cache", st.CacheMs, "")
	observability.AppendServerTiming(w, "db", st.DBMs, "")
	observability.AppendServerTiming(w, "source", 0, string(st.Source))
	w.Header().Set("X-Source", string(st.Source))
	observability.SetIfPos(w, "X-Cache-Time", st.CacheMs)
	observability.SetIfPos(w, "X-DB-Time", st.DBMs)

	writeJSON(w, http.StatusOK, order)
}

// serveStatic serves one fixed page from the static directory. ServeContent
// is used instead of ServeFile so "/merch/index.html" is not redirected.
func (s *Server) serveStatic(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := os.Open(filepath.Join(s.staticDir, name))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		fi, err := f.Stat()
		if err != nil || fi.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: bad json: %v", domain.ErrValidation, err)
	}
	return nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve blocks until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Handler() http.Handler { return s.router }
