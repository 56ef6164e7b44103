package server

import "github.com/gin-gonic/gin"

// Registrar is a common interface for every HTTP service registrar.
// public is open to anonymous callers, protected sits behind the session check.
type Registrar interface {
	Name() string
	Register(public, protected *gin.RouterGroup)
}
