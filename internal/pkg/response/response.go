// Package response writes the admin API envelope:
//
//	{"code": 0, "message": "", "data": {...}}
//
// Failures keep HTTP 200 and carry an errcode value in code with a
// human-readable message. The LINE webhook does not use this envelope.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// Envelope is the body every admin endpoint returns.
type Envelope = proxyutil.CommonResponse

type apiError struct {
	code    uint32
	message string
}

func (e apiError) Error() string { return e.message }
func (e apiError) Code() uint32  { return e.code }

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error aborts the request with an errcode and message.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, http.StatusOK, apiError{code: uint32(code), message: message})
}
