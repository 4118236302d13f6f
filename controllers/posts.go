package controllers

import (
	"net/http"
	"strconv"

	"github.com/bellapacxx/guba-backend/models"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/bellapacxx/guba-backend/utils/logger"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type PostController struct {
	posts *services.PostService
}

func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// bindPostInput reads JSON or form fields. Form requests carry the image as
// a URL string; an uploaded file under "image" is not stored.
func bindPostInput(c *gin.Context) (services.PostInput, bool) {
	var in services.PostInput
	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, "Invalid request body")
		return in, false
	}
	if c.ContentType() == binding.MIMEJSON {
		return in, true
	}
	if image, ok := c.GetPostForm("image"); ok {
		in.Image = &image
	}
	if fh, err := c.FormFile("image"); err == nil {
		logger.Warnf("ignoring uploaded image file %q, send an image URL instead", fh.Filename)
	}
	return in, true
}

// CreatePost adds a draw; accepts JSON or form fields
func (pc *PostController) CreatePost(c *gin.Context) {
	in, ok := bindPostInput(c)
	if !ok {
		return
	}

	post, err := pc.posts.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Post")
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetAllPosts lists draws newest first, optionally filtered by
// ?category=, ?featured= and ?status=
func (pc *PostController) GetAllPosts(c *gin.Context) {
	filter := models.PostFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
	}
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "featured must be true or false")
			return
		}
		filter.Featured = &featured
	}

	posts, err := pc.posts.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Post")
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetPost returns a single draw
func (pc *PostController) GetPost(c *gin.Context) {
	post, err := pc.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// UpdatePost applies a partial update
func (pc *PostController) UpdatePost(c *gin.Context) {
	in, ok := bindPostInput(c)
	if !ok {
		return
	}

	post, err := pc.posts.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err, "Post")
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes a draw
func (pc *PostController) DeletePost(c *gin.Context) {
	if err := pc.posts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
