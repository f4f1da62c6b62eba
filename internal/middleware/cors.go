package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS answers preflight requests for the register frontends. origenes is a
// comma separated allow-list; "*" or empty allows any origin.
func CORS(origenes string) gin.HandlerFunc {
	permitidos := make(map[string]bool)
	todos := strings.TrimSpace(origenes) == "" || strings.TrimSpace(origenes) == "*"
	for _, o := range strings.Split(origenes, ",") {
		if o = strings.TrimSpace(o); o != "" {
			permitidos[o] = true
		}
	}

	return func(c *gin.Context) {
		origen := c.GetHeader("Origin")
		switch {
		case todos:
			c.Header("Access-Control-Allow-Origin", "*")
		case permitidos[origen]:
			c.Header("Access-Control-Allow-Origin", origen)
			c.Header("Vary", "Origin")
		case origen != "":
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, "+RequestIDHeader)
		// Content-Disposition carries the ticket file name
		c.Header("Access-Control-Expose-Headers", RequestIDHeader+", Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
