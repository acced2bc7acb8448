package webserver

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/the80percentbill/pledge-api/src/api/store"
)

type Admin struct {
	st *store.Store
}

func NewAdmin(st *store.Store) Admin {
	return Admin{st: st}
}

// AdminMiddleware guards the admin group with a shared-secret header.
// With no token configured the group is unreachable.
func AdminMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.JSON(http.StatusForbidden, gin.H{"err": "admin access not configured"})
			c.Abort()
			return
		}
		got := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"err": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ResetStore clears the entire signature table. Destructive; requires
// an explicit confirmation phrase on top of the admin token. The backup
// table is untouched.
func (a Admin) ResetStore(c *gin.Context) {
	var req struct {
		Confirm string `json:"confirm" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}
	if req.Confirm != "RESET" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "confirmation phrase required"})
		return
	}

	log.Printf("Admin reset of signature store from IP %s", c.ClientIP())

	if err := a.st.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
