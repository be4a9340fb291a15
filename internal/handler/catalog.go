package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listBooks(c *gin.Context) {
	s := h.scope(c)
	list, err := s.api.ListBooks(c.Request.Context(), listQuery(c))
	if err != nil {
		h.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getBook(c *gin.Context) {
	s := h.scope(c)
	book, err := s.api.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handler) getBookBySlug(c *gin.Context) {
	s := h.scope(c)
	book, err := s.api.GetBookBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *Handler) listCategories(c *gin.Context) {
	s := h.scope(c)
	list, err := s.api.ListCategories(c.Request.Context(), listQuery(c))
	if err != nil {
		h.fail(c, s, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
