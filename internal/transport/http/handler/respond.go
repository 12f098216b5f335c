package handler

import "github.com/gin-gonic/gin"

// Every response uses the same envelope: {success, message} plus any
// operation-specific fields.
func respondOK(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}
