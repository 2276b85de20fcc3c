package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sportsfest/registration/internal/application/cart"
	"github.com/sportsfest/registration/internal/interface/http/middleware"
	apperrors "github.com/sportsfest/registration/pkg/errors"
	"github.com/sportsfest/registration/pkg/response"
)

// actor builds the cart owner from the session claims.
func actor(c *gin.Context) cart.Actor {
	id, slug := middleware.GetOrganization(c)
	return cart.Actor{OrganizationID: id, OrganizationSlug: slug}
}

// idParam parses a positive numeric path parameter, writing the error
// response itself when it cannot.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func bindError(c *gin.Context, err error) {
	response.ErrorWithCode(c, apperrors.ErrCodeBindError, "invalid parameters: "+err.Error())
}
