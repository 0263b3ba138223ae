package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/moviesearch/internal/model"
	"github.com/user/moviesearch/internal/service"
	"github.com/user/moviesearch/internal/utils"
)

const deletedMessage = "Movie deleted successfully"

// SemanticSearch GET /movies/semantic-search?prompt=&limit=
func (h *Handler) SemanticSearch(c *gin.Context) {
	var q model.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequest(c, "invalid input: limit: must be an integer")
		return
	}

	results, err := h.Search.SemanticSearch(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SearchResponse{Movies: results})
}

// CreateMovie POST /movies
func (h *Handler) CreateMovie(c *gin.Context) {
	var in model.MovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "invalid input: body: "+err.Error())
		return
	}

	movie, err := h.Movies.Insert(c.Request.Context(), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movie)
}

// GetMovieByID GET /movies/id/:id
func (h *Handler) GetMovieByID(c *gin.Context) {
	id, err := service.ParseMovieID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	movie, err := h.Movies.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

// UpdateMovieByID PUT /movies/id/:id
func (h *Handler) UpdateMovieByID(c *gin.Context) {
	id, err := service.ParseMovieID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var in model.MovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "invalid input: body: "+err.Error())
		return
	}

	movie, err := h.Movies.UpdateByID(c.Request.Context(), id, &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

// DeleteMovieByID DELETE /movies/id/:id
func (h *Handler) DeleteMovieByID(c *gin.Context) {
	id, err := service.ParseMovieID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.Movies.DeleteByID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, deletedMessage)
}

// GetMovieByTitle GET /movies/title?movie_title=
func (h *Handler) GetMovieByTitle(c *gin.Context) {
	movie, err := h.Movies.GetByTitle(c.Request.Context(), c.Query("movie_title"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

// UpdateMovieByTitle PUT /movies/title?movie_title=
func (h *Handler) UpdateMovieByTitle(c *gin.Context) {
	var in model.MovieInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "invalid input: body: "+err.Error())
		return
	}

	movie, err := h.Movies.UpdateByTitle(c.Request.Context(), c.Query("movie_title"), &in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

// DeleteMovieByTitle DELETE /movies/title?movie_title=
func (h *Handler) DeleteMovieByTitle(c *gin.Context) {
	if err := h.Movies.DeleteByTitle(c.Request.Context(), c.Query("movie_title")); err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, deletedMessage)
}
