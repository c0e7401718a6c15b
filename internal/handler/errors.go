package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// respondError writes err in the standard envelope and logs server errors.
func respondError(c *gin.Context, err error, fallback string) {
	status, code := utils.ErrorFrom(c, err, fallback)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Str("code", code).Msg(fallback)
	}
}

// bindJSON decodes the request body and writes a 400 on failure.
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

func forbidden(c *gin.Context) {
	utils.Error(c, http.StatusForbidden, "FORBIDDEN", "Token is not allowed to act for this store")
}
