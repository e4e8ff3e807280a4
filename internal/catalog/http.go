package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"BookStore/pkg/kit"
)

const (
	maxBodyBytes  = 1 << 20
	readyTimeout  = 1 * time.Second
	revenueDigits = 2
)

type Server struct {
	Catalog *Service
	Log     *zap.Logger

	validate *validator.Validate
}

func NewServer(svc *Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Catalog: svc, Log: log, validate: validator.New()}
}

// Routes mounts the catalog API. staff guards the mutating routes; nil
// leaves them open.
func (s *Server) Routes(staff func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Get("/books", s.listBooks)
	r.Get("/books/{id}", s.getBook)
	r.Get("/sales", s.listSales)
	r.Get("/revenue", s.revenue)
	r.Get("/reports/sales", s.salesReport)
	r.Get("/reports/inventory", s.inventoryReport)

	r.Group(func(pr chi.Router) {
		if staff != nil {
			pr.Use(staff)
		}
		pr.Post("/books", s.addBook)
		pr.Put("/books/{id}", s.updateBook)
		pr.Delete("/books/{id}", s.deleteBook)
		pr.Post("/sales", s.recordSale)
	})

	return r
}

type bookFields struct {
	Title    string           `json:"title" validate:"required,max=512"`
	Author   string           `json:"author" validate:"required,max=512"`
	Quantity *int             `json:"quantity" validate:"required,gte=0"`
	Price    *decimal.Decimal `json:"price" validate:"required"`
}

type bookReq struct {
	ID *int64 `json:"id" validate:"required"`
	bookFields
}

// updateReq is bookReq with an optional id; a missing id keeps the one in
// the path.
type updateReq struct {
	ID *int64 `json:"id"`
	bookFields
}

type saleReq struct {
	BookID   *int64           `json:"book_id" validate:"required"`
	Quantity *int             `json:"quantity" validate:"required,gte=0"`
	Price    *decimal.Decimal `json:"price" validate:"required"`
}

type revenueResp struct {
	Revenue string `json:"revenue"`
	Sales   int    `json:"sales"`
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Catalog.Ping(ctx); err != nil {
		s.Log.Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Catalog.Books())
}

func (s *Server) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	b, found := s.Catalog.Book(id)
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) addBook(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if !s.decode(w, r, &req) {
		return
	}

	b, err := NewBook(*req.ID, req.Title, req.Author, *req.Quantity, *req.Price)
	if err == nil {
		err = s.Catalog.AddBook(r.Context(), b)
	}
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, b)
}

func (s *Server) updateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateReq
	if !s.decode(w, r, &req) {
		return
	}

	newID := id
	if req.ID != nil {
		newID = *req.ID
	}

	b, err := NewBook(newID, req.Title, req.Author, *req.Quantity, *req.Price)
	if err == nil {
		err = s.Catalog.UpdateBook(r.Context(), id, b)
	}
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.Catalog.DeleteBook(r.Context(), id); err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleReq
	if !s.decode(w, r, &req) {
		return
	}

	sale, err := s.Catalog.RecordSale(r.Context(), *req.BookID, *req.Quantity, *req.Price)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, sale)
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Catalog.Sales())
}

func (s *Server) revenue(w http.ResponseWriter, r *http.Request) {
	snap := s.Catalog.Snapshot()
	kit.WriteJSON(w, http.StatusOK, revenueResp{
		Revenue: snap.Revenue().StringFixed(revenueDigits),
		Sales:   len(snap.Sales),
	})
}

func (s *Server) salesReport(w http.ResponseWriter, r *http.Request) {
	kit.WriteText(w, http.StatusOK, s.Catalog.SalesReport())
}

func (s *Server) inventoryReport(w http.ResponseWriter, r *http.Request) {
	kit.WriteText(w, http.StatusOK, s.Catalog.InventoryReport())
}

// decode reads a single JSON object into v and validates it. It writes the
// error response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": "extra data after json object"})
		return false
	}

	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = "failed on rule: " + fe.Tag()
			}
			kit.WriteError(w, r, http.StatusBadRequest, "validation failed", fields)
			return false
		}
		kit.WriteError(w, r, http.StatusBadRequest, "bad request", nil)
		return false
	}
	return true
}

func (s *Server) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"cause": err.Error()})
	case errors.Is(err, ErrInsufficientStock):
		kit.WriteError(w, r, http.StatusConflict, "insufficient stock", map[string]any{"cause": err.Error()})
	case errors.Is(err, ErrInvalidBook), errors.Is(err, ErrInvalidSale):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid record", map[string]any{"cause": err.Error()})
	case errors.Is(err, ErrPersist):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "storage unavailable", nil)
	default:
		s.Log.Error("catalog operation failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}
