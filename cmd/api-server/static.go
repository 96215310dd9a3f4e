package main

import (
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
)

// newSPAHandler 静态导出页面的 HTTP handler
//
// 优先级：
//  1. 根路径 → index.html
//  2. 静态文件精确匹配 → 从嵌入的文件系统提供服务
//  3. 无扩展名路径 → {path}.html（/tasks → /tasks.html）
//  4. 兜底 → index.html 内容（客户端路由接管）
//
// 步骤4 不能使用 http.FileServer：FileServer 对 /index.html 会 301 到 ./，
// 非根路径会产生重定向循环。
func newSPAHandler(staticFS fs.FS) (http.Handler, error) {
	fileServer := http.FileServer(http.FS(staticFS))

	indexHTML, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		return nil, fmt.Errorf("read index.html: %w", err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := path.Clean(r.URL.Path)
		if cleanPath == "/" {
			serveIndexHTML(w, indexHTML)
			return
		}

		if tryServeFile(staticFS, cleanPath) {
			fileServer.ServeHTTP(w, r)
			return
		}

		if !strings.Contains(path.Base(cleanPath), ".") {
			htmlPath := cleanPath + ".html"
			if tryServeFile(staticFS, htmlPath) {
				serveHTMLFile(w, staticFS, htmlPath)
				return
			}
		}

		serveIndexHTML(w, indexHTML)
	}), nil
}

// serveIndexHTML 直接写入预加载的 index.html 内容
func serveIndexHTML(w http.ResponseWriter, content []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// htmlBufPool 复用 HTML 文件读取的缓冲区
var htmlBufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 32*1024)
		return &buf
	},
}

// serveHTMLFile 从 FS 中读取指定 HTML 文件并返回
func serveHTMLFile(w http.ResponseWriter, fsys fs.FS, filePath string) {
	f, err := fsys.Open(strings.TrimPrefix(filePath, "/"))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	bufp := htmlBufPool.Get().(*[]byte)
	defer htmlBufPool.Put(bufp)
	io.CopyBuffer(w, f, *bufp)
}

// tryServeFile 文件存在且不是目录
func tryServeFile(fsys fs.FS, filePath string) bool {
	cleanPath := strings.TrimPrefix(filePath, "/")
	if cleanPath == "" {
		cleanPath = "."
	}
	f, err := fsys.Open(cleanPath)
	if err != nil {
		return false
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return !stat.IsDir()
}
