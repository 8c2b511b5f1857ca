package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success writes a success JSON response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"msg":  "ok",
		"data": data,
	})
}

// Fail writes an error JSON response.
func Fail(c *gin.Context, err error) {
	FailWithStatus(c, http.StatusBadRequest, err, nil)
}

// FailWithStatus writes an error JSON response with a status and optional data.
func FailWithStatus(c *gin.Context, status int, err error, data interface{}) {
	body := gin.H{
		"code": -1,
		"msg":  err.Error(),
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}
