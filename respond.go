package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"scholarlens/services"
)

const dateLayout = "2006-01-02"

// respondError maps store errors onto HTTP status codes.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	switch services.ErrorKind(err) {
	case "validation":
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case "conflict":
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case "not_found":
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		log.Error("request failed", zap.String("path", c.FullPath()), zap.String("request_id", c.GetString("request_id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

var errBadDate = errors.New("dates must use YYYY-MM-DD")

// parseDate liest ein optionales Datum im Format YYYY-MM-DD.
func parseDate(v *string) (*datatypes.Date, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *v)
	if err != nil {
		return nil, errBadDate
	}
	d := datatypes.Date(t)
	return &d, nil
}

// dateField parses in into out and answers 400 on a malformed date.
func dateField(c *gin.Context, field string, in *string, out **datatypes.Date) bool {
	d, err := parseDate(in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + ": " + err.Error()})
		return false
	}
	*out = d
	return true
}
