package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// SanitizeInput strips markup from top-level string fields of JSON bodies.
// Nested values (the builder document) are left for coercion to handle.
// Bodies that are valid JSON but not objects pass through untouched.
func SanitizeInput() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "Could not read request body"})
			return
		}
		if !json.Valid(buf) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "Malformed JSON"})
			return
		}

		var body map[string]json.RawMessage
		if err := json.Unmarshal(buf, &body); err == nil && body != nil {
			for k, v := range body {
				var s string
				if json.Unmarshal(v, &s) != nil {
					continue
				}
				clean, _ := json.Marshal(policy.Sanitize(s))
				body[k] = clean
			}
			buf, _ = json.Marshal(body)
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(buf))
		c.Request.ContentLength = int64(len(buf))
		c.Next()
	}
}
