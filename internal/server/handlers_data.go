package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"nexusai/internal/apperr"
	"nexusai/internal/tabular"
)

type sqlRequest struct {
	Question string `json:"question" binding:"required"`
}

type queryRequest struct {
	SQL string `json:"sql" binding:"required"`
}

func (s *Server) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.Validation("Attach a CSV or Excel file in the \"file\" field"))
		return
	}
	if fh.Size > tabular.MaxUploadBytes {
		respondError(c, apperr.Validationf("The uploaded file is larger than %d MB", tabular.MaxUploadBytes>>20))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, apperr.Validationf("Error processing file: %v", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, tabular.MaxUploadBytes+1))
	if err != nil {
		respondError(c, apperr.Validationf("Error processing file: %v", err))
		return
	}

	ds, err := tabular.ParseUpload(fh.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := controllerFrom(c).AttachDataset(c.Request.Context(), ds); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds.Summary())
}

func (s *Server) generateSQL(c *gin.Context) {
	var in sqlRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, bindingError(err))
		return
	}
	sql, err := controllerFrom(c).GenerateSQL(c.Request.Context(), in.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sql": sql})
}

func (s *Server) runQuery(c *gin.Context) {
	var in queryRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, bindingError(err))
		return
	}
	res, err := controllerFrom(c).RunSQL(c.Request.Context(), in.SQL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"columns":  res.Columns,
		"rows":     res.Rows,
		"markdown": tabular.Markdown(res),
	})
}
