package main

import (
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Brownie44l1/webby/internal/handlers"
	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
)

const maxNoteSize = 64 * 1024

type note struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// notes is an in-memory REST resource. PUT is not supported and answers 501.
type notes struct {
	handlers.NopResource

	mu     sync.Mutex
	nextID int
	items  map[int]note
}

func newNotes() *notes {
	return &notes{nextID: 1, items: make(map[int]note)}
}

func (n *notes) Index(w *response.Response, r *request.Request) {
	n.mu.Lock()
	list := make([]note, 0, len(n.items))
	for _, it := range n.items {
		list = append(list, it)
	}
	n.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, response.StatusOK, list)
}

func (n *notes) Show(w *response.Response, r *request.Request) {
	id, ok := noteID(r)
	if !ok {
		w.Error(response.StatusNotFound, "")
		return
	}

	n.mu.Lock()
	it, ok := n.items[id]
	n.mu.Unlock()
	if !ok {
		w.Error(response.StatusNotFound, "")
		return
	}
	writeJSON(w, response.StatusOK, it)
}

func (n *notes) Create(w *response.Response, r *request.Request) {
	text, err := readBody(r)
	if err != nil {
		w.Error(response.StatusBadRequest, err.Error())
		return
	}

	n.mu.Lock()
	it := note{ID: n.nextID, Text: text}
	n.items[it.ID] = it
	n.nextID++
	n.mu.Unlock()

	w.SetHeader("Location", r.Route+"/"+strconv.Itoa(it.ID))
	writeJSON(w, response.StatusCreated, it)
}

func (n *notes) Destroy(w *response.Response, r *request.Request) {
	id, ok := noteID(r)
	if !ok {
		w.Error(response.StatusNotFound, "")
		return
	}

	n.mu.Lock()
	it, ok := n.items[id]
	delete(n.items, id)
	n.mu.Unlock()
	if !ok {
		w.Error(response.StatusNotFound, "")
		return
	}
	writeJSON(w, response.StatusOK, it)
}

func noteID(r *request.Request) (int, bool) {
	rest := strings.TrimPrefix(strings.TrimPrefix(r.Path, r.Route), "/")
	id, err := strconv.Atoi(rest)
	return id, err == nil
}

type bodyReader struct{ r *request.Request }

func (b bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.ReadBlock(p, false)
	if err == nil && n == 0 {
		return 0, io.EOF
	}
	return n, err
}

// readBody reads a Content-Length delimited body.
func readBody(r *request.Request) (string, error) {
	cl, ok := r.Headers.Get("Content-Length")
	if !ok {
		return "", nil
	}
	size, err := strconv.Atoi(strings.TrimSpace(cl))
	if err != nil || size < 0 {
		return "", errInvalidLength
	}
	if size > maxNoteSize {
		return "", errNoteTooLarge
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(bodyReader{r}, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

type noteError string

func (e noteError) Error() string { return string(e) }

const (
	errInvalidLength noteError = "invalid Content-Length"
	errNoteTooLarge  noteError = "note too large"
)
