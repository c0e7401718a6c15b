package middleware

import (
    "github.com/gin-gonic/gin"
)

// Context keys set by JWTMiddleware.
const (
    ContextUserID  = "user_id"
    ContextStoreID = "store_id"
)

// UserID returns the authenticated caller, or "" on public routes.
func UserID(c *gin.Context) string {
    return c.GetString(ContextUserID)
}

// StoreID returns the store the token acts for, falling back to fallback
// when the token is not bound to a store.
func StoreID(c *gin.Context, fallback string) string {
    if id := c.GetString(ContextStoreID); id != "" {
        return id
    }
    return fallback
}

// CanActFor reports whether the caller may write on behalf of storeID.
// Tokens without a store binding are platform tokens and may act for any store.
func CanActFor(c *gin.Context, storeID string) bool {
    bound := c.GetString(ContextStoreID)
    return bound == "" || bound == storeID
}
