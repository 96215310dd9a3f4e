package main

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// defaultWebDevAddr Next.js dev server 默认地址
const defaultWebDevAddr = "http://localhost:3001"

// newDevHandler 开发模式页面 handler：页面和静态资源反向代理到 Next.js dev server
//
//	Browser → http://localhost:3000 (Go)
//	          ├── /api/*   → Go handlers
//	          ├── /health  → Go
//	          ├── /metrics → Go
//	          └── /*       → 访问闸门 → reverse proxy → Next.js dev
func newDevHandler(nextjsAddr string) (http.Handler, error) {
	target, err := url.Parse(nextjsAddr)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid Next.js dev server address %q", nextjsAddr)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = target.Host
	}
	return proxy, nil
}
