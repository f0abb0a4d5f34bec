package middleware

import "github.com/gin-gonic/gin"

const failureWriterKey = "failureWriter"

// FailureWriter renders an aborted request in a route group's own response shape.
type FailureWriter func(c *gin.Context, status int, code, message string)

// WithFailureWriter makes Recovery and RateLimit answer with fw for the group.
func WithFailureWriter(fw FailureWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(failureWriterKey, fw)
		c.Next()
	}
}

func failureWriterFrom(c *gin.Context) (FailureWriter, bool) {
	v, ok := c.Get(failureWriterKey)
	if !ok {
		return nil, false
	}
	fw, ok := v.(FailureWriter)
	return fw, ok && fw != nil
}
