package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	werrors "github.com/Brownie44l1/webby/internal/errors"
	"github.com/Brownie44l1/webby/internal/request"
	"github.com/Brownie44l1/webby/internal/response"
	"github.com/Brownie44l1/webby/internal/socket"
)

func main() {
	fs := pflag.NewFlagSet("tcplistener", pflag.ExitOnError)
	host := fs.StringP("host", "H", "", "address to listen on")
	port := fs.Uint16P("port", "p", 42069, "port to listen on")
	fs.Parse(os.Args[1:])

	ep := socket.NewEndpoint(socket.DefaultBacklog)
	if err := ep.Create(context.Background(), *host, *port); err != nil {
		fmt.Fprintln(os.Stderr, "listen:", err)
		os.Exit(1)
	}
	defer ep.Close()
	fmt.Printf("Listening on %s...\n", ep.HostPort())

	for {
		conn, err := ep.Accept()
		if err != nil {
			if werrors.KindOf(err) == werrors.ConnectionClosed {
				return
			}
			fmt.Println("Accept error:", err)
			continue
		}

		go handleConnection(conn)
	}
}

// handleConnection prints the decoded request and answers with a fixed body.
func handleConnection(conn *socket.Conn) {
	defer conn.Close()

	req, err := request.Decode(conn)
	if err != nil {
		fmt.Println("failed to decode request:", err)
		return
	}

	fmt.Println("Request line:")
	fmt.Printf("- Method: %s (%s)\n", req.MethodToken, req.Method)
	fmt.Printf("- Target: %s\n", req.Path)
	fmt.Printf("- Version: %s\n", req.Version)
	fmt.Println("Headers:")
	req.Headers.Each(func(name, value string) {
		fmt.Printf("- %s: %s\n", name, value)
	})
	if req.DroppedHeaders > 0 {
		fmt.Printf("Dropped %d malformed header lines\n", req.DroppedHeaders)
	}

	owner, err := conn.Share()
	if err != nil {
		return
	}
	w := response.New(owner)
	w.Text(response.StatusOK, "Hello from your HTTP server!\n")
	if err := w.Finish(); err != nil {
		fmt.Println("write error:", err)
	}
}
