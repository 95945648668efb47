package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/webby/internal/headers"
	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
	"github.com/Brownie44l1/webby/internal/router"
)

type bufConn struct {
	bytes.Buffer
}

func (c *bufConn) Close() error { return nil }

func serve(h router.Handler, token, path, route string) string {
	conn := &bufConn{}
	w := response.New(conn)
	r := &request.Request{
		Method:      request.ParseMethod(token),
		MethodToken: token,
		Path:        path,
		Version:     "HTTP/1.1",
		Headers:     headers.NewHeaders(),
		Route:       route,
	}
	h(w, r)
	w.Finish()
	return conn.String()
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

func TestFileHandler(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "<h1>home</h1>")
	writeFile(t, filepath.Join(root, "css", "site.css"), "body{}")
	writeFile(t, filepath.Join(root, "docs", "index.html"), "docs")
	big := strings.Repeat("0123456789", 10000)
	writeFile(t, filepath.Join(root, "big.txt"), big)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	h := FileHandler(root)

	// Test: plain file with content type
	got := serve(h, "GET", "/css/site.css", "/")
	assert.Contains(t, got, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, got, "Content-Length: 6\r\n")
	assert.Contains(t, got, "Content-Type: text/css")
	assert.True(t, strings.HasSuffix(got, "\r\n\r\nbody{}"))

	// Test: directories serve index.html
	got = serve(h, "GET", "/", "/")
	assert.True(t, strings.HasSuffix(got, "<h1>home</h1>"))
	got = serve(h, "GET", "/docs", "/")
	assert.True(t, strings.HasSuffix(got, "docs"))

	// Test: query string ignored
	got = serve(h, "GET", "/css/site.css?v=2", "/")
	assert.Contains(t, got, "HTTP/1.1 200 OK\r\n")

	// Test: files larger than one block arrive whole
	got = serve(h, "GET", "/big.txt", "/")
	assert.Contains(t, got, "Content-Length: 100000\r\n")
	assert.True(t, strings.HasSuffix(got, big))

	// Test: HEAD sends the head only
	got = serve(h, "HEAD", "/css/site.css", "/")
	assert.Contains(t, got, "Content-Length: 6\r\n")
	assert.True(t, strings.HasSuffix(got, "\r\n\r\n"))

	// Test: missing files and directories without an index
	assert.Contains(t, serve(h, "GET", "/nope.html", "/"), "HTTP/1.1 404 Not Found\r\n")
	assert.Contains(t, serve(h, "GET", "/empty", "/"), "HTTP/1.1 404 Not Found\r\n")

	// Test: paths cannot climb above root
	writeFile(t, filepath.Join(filepath.Dir(root), "secret.txt"), "secret")
	got = serve(h, "GET", "/../secret.txt", "/")
	assert.Contains(t, got, "HTTP/1.1 404 Not Found\r\n")
	assert.NotContains(t, got, "secret\n")

	// Test: other methods are refused
	got = serve(h, "POST", "/index.html", "/")
	assert.Contains(t, got, "HTTP/1.1 405 Method Not Allowed\r\n")
	assert.Contains(t, got, "Allow: GET, HEAD\r\n")
}

type widgets struct {
	NopResource
	calls []string
}

func (wd *widgets) Index(w *response.Response, r *request.Request) {
	wd.calls = append(wd.calls, "index")
	w.JSON(response.StatusOK, `[]`)
}

func (wd *widgets) Show(w *response.Response, r *request.Request) {
	id := strings.TrimPrefix(r.Path, r.Route+"/")
	wd.calls = append(wd.calls, "show "+id)
	w.JSON(response.StatusOK, `{"id":"`+id+`"}`)
}

func (wd *widgets) Create(w *response.Response, r *request.Request) {
	wd.calls = append(wd.calls, "create")
	w.SetStatus(response.StatusCreated)
}

func TestRESTHandler(t *testing.T) {
	res := &widgets{}
	h := RESTHandler(res)

	got := serve(h, "GET", "/widgets", "/widgets")
	assert.Contains(t, got, "HTTP/1.1 200 OK\r\n")
	assert.True(t, strings.HasSuffix(got, "[]"))

	got = serve(h, "GET", "/widgets/7", "/widgets")
	assert.True(t, strings.HasSuffix(got, `{"id":"7"}`))

	got = serve(h, "POST", "/widgets", "/widgets")
	assert.Contains(t, got, "HTTP/1.1 201 Created\r\n")
	assert.Contains(t, got, "Content-Length: 0\r\n")

	// Test: operations the resource does not override answer 501
	assert.Contains(t, serve(h, "PUT", "/widgets/7", "/widgets"), "HTTP/1.1 501 Not Implemented\r\n")
	assert.Contains(t, serve(h, "DELETE", "/widgets/7", "/widgets"), "HTTP/1.1 501 Not Implemented\r\n")
	assert.Contains(t, serve(h, "OPTIONS", "/widgets", "/widgets"), "HTTP/1.1 501 Not Implemented\r\n")

	assert.Equal(t, []string{"index", "show 7", "create"}, res.calls)
}

func TestRESTHandlerWithRouter(t *testing.T) {
	res := &widgets{}
	rt := router.New()
	rt.Handle(request.MethodREST, "/widgets", RESTHandler(res))

	conn := &bufConn{}
	w := response.New(conn)
	rt.Route(w, &request.Request{
		Method:  request.MethodGet,
		Path:    "/widgets/abc",
		Headers: headers.NewHeaders(),
	})
	w.Finish()

	assert.Equal(t, []string{"show abc"}, res.calls)
	assert.True(t, strings.HasSuffix(conn.String(), `{"id":"abc"}`))
}
