package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/storefront/internal/service/admin"
)

func (s *Server) listCustomers(c *gin.Context) {
	customers, err := s.admin.Customers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Customers retrieved successfully", customers)
}

func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.admin.Orders(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.admin.Stats(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Dashboard statistics retrieved successfully", stats)
}

func (s *Server) exportOrders(c *gin.Context) {
	s.exportCSV(c, "orders.csv", s.admin.ExportOrdersCSV)
}

func (s *Server) exportCustomers(c *gin.Context) {
	s.exportCSV(c, "customers.csv", s.admin.ExportCustomersCSV)
}

// exportCSV буферизует выгрузку целиком, чтобы ошибка хранилища не оборвала ответ на середине.
func (s *Server) exportCSV(c *gin.Context, filename string, export func(context.Context, io.Writer) error) {
	if err := admin.CheckFormat(c.Query("format")); err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export(c.Request.Context(), &buf); err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
