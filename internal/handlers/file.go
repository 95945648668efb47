// Package handlers provides the stock route handlers: a static file server
// and a dispatcher for REST resources.
package handlers

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
	"github.com/Brownie44l1/webby/internal/router"
	"github.com/Brownie44l1/webby/internal/socket"
)

const fileBlockSize = 32 * 1024

// FileHandler serves files below root. The full request path is resolved
// under root and directories serve their index.html.
func FileHandler(root string) router.Handler {
	return func(w *response.Response, r *request.Request) {
		if r.Method != request.MethodGet && r.Method != request.MethodHead {
			w.SetHeader("Allow", "GET, HEAD")
			w.Error(response.StatusMethodNotAllowed, "")
			return
		}

		name := resolve(root, r.Path)
		f, info, err := open(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				w.Error(response.StatusNotFound, "")
			} else {
				w.Error(response.StatusInternalServerError, "")
			}
			return
		}
		defer f.Close()

		if ctype := mime.TypeByExtension(filepath.Ext(name)); ctype != "" {
			w.SetHeader("Content-Type", ctype)
		}
		w.SetHeader("Content-Length", strconv.FormatInt(info.Size(), 10))
		w.SetStatus(response.StatusOK)

		if r.Method == request.MethodHead {
			return
		}
		serveContent(w, f)
	}
}

// resolve maps a request path to a file name below root.
func resolve(root, target string) string {
	if idx := strings.IndexByte(target, '?'); idx != -1 {
		target = target[:idx]
	}
	// Cleaning an absolute path removes any ".." that would climb above root
	clean := path.Clean("/" + target)
	return filepath.Join(root, filepath.FromSlash(clean))
}

func open(name string) (*os.File, fs.FileInfo, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		name = filepath.Join(name, "index.html")
		if info, err = os.Stat(name); err != nil {
			return nil, nil, err
		}
		if info.IsDir() {
			return nil, nil, fs.ErrNotExist
		}
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}

func serveContent(w *response.Response, f io.Reader) error {
	buf := socket.GetBuffer(fileBlockSize)
	defer socket.PutBuffer(buf)

	for {
		n, err := f.Read(buf)
		if n > 0 {
			if werr := w.WriteBlock(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
