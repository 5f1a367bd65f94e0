package middleware

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// tokenParam carries the access token on websocket upgrades (see AuthMiddleware).
const tokenParam = "access_token"

// RequestLogger is gin's access log with the token query parameter masked.
func RequestLogger() gin.HandlerFunc {
	return RequestLoggerTo(gin.DefaultWriter)
}

func RequestLoggerTo(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		Formatter: func(p gin.LogFormatterParams) string {
			return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
				p.TimeStamp.Format("2006/01/02 - 15:04:05"),
				p.StatusCode,
				p.Latency,
				p.ClientIP,
				p.Method,
				redactToken(p.Path),
				p.ErrorMessage,
			)
		},
	})
}

func redactToken(path string) string {
	i := strings.IndexByte(path, '?')
	if i < 0 {
		return path
	}
	q, err := url.ParseQuery(path[i+1:])
	if err != nil {
		// не парсится: query целиком не пишем
		return path[:i] + "?<unparsed>"
	}
	if !q.Has(tokenParam) {
		return path
	}
	q.Set(tokenParam, "REDACTED")
	return path[:i] + "?" + q.Encode()
}
