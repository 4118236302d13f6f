package middleware

import "github.com/gin-gonic/gin"

// ErrorBody is the JSON body of every failed request. Older clients read
// "message", newer ones "error".
func ErrorBody(msg string) gin.H {
	return gin.H{"error": msg, "message": msg}
}
