package middleware

import (
	"github.com/gin-gonic/gin"
)

var securityHeaders = map[string]string{
	"X-Content-Type-Options":     "nosniff",
	"X-Frame-Options":            "DENY",
	"Referrer-Policy":            "no-referrer",
	"Permissions-Policy":         "camera=(), microphone=(), geolocation=()",
	"Cross-Origin-Opener-Policy": "same-origin",
}

func SecurityHeaders() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		for k, v := range securityHeaders {
			ctx.Header(k, v)
		}
		ctx.Next()
	}
}
