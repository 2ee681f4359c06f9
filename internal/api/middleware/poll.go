package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// PollHint marks a poll endpoint: responses are never cached and carry the
// interval, in seconds, clients should wait before the next request.
func PollHint(interval time.Duration) gin.HandlerFunc {
	seconds := strconv.Itoa(int(math.Max(1, math.Ceil(interval.Seconds()))))

	return func(ctx *gin.Context) {
		ctx.Header("Cache-Control", "no-store")
		ctx.Header("X-Poll-Interval", seconds)
		ctx.Next()
	}
}
