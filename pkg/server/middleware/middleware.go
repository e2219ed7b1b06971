package middleware

import "github.com/valyala/fasthttp"

// HttpMiddleware wraps a request handler; middlewares are applied in reverse
// registration order so the first registered runs outermost.
type HttpMiddleware interface {
	Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler
}
