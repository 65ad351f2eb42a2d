package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"go-page-builder/internal/server"

	"go.uber.org/zap"
)

const defaultPreviewAddr = "127.0.0.1:8080"

type previewServer struct {
	srv  *server.Server
	http *http.Server
	url  string
	done chan struct{}
}

// startPreview serves the session on addr until stop is called.
func (c *CLI) startPreview(addr string) (*previewServer, error) {
	srv := server.New(c.sess, server.Config{
		Addr:      addr,
		ExportDir: c.cfg.ExportDir,
		AssetsDir: c.cfg.AssetsDir,
	}, c.logger)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	p := &previewServer{
		srv:  srv,
		http: srv.HTTPServer(),
		url:  "http://" + browsable(ln.Addr()) + "/preview",
		done: make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		if err := p.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("preview server failed", zap.Error(err))
		}
	}()
	c.logger.Info("preview server started", zap.String("url", p.url))
	return p, nil
}

func (p *previewServer) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.srv.Close()
	_ = p.http.Shutdown(ctx)
	<-p.done
}

// browsable turns a listener address into a host:port a browser can open.
func browsable(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// handlePreview serves the page with live reload. One-shot runs block
// until the context ends; the shell keeps the server running in the
// background so edits show up as they are made.
func (c *CLI) handlePreview(ctx context.Context, args []string) error {
	fs := c.newFlagSet("preview")
	pageID := fs.String("page", "", "Stored page id")
	addr := fs.String("addr", c.cfg.PreviewAddr, "Listen address")
	noBrowser := fs.Bool("no-browser", !c.cfg.OpenBrowser, "Do not open a browser")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.requirePage(ctx, *pageID); err != nil {
		return err
	}
	if c.preview != nil {
		fmt.Fprintf(c.out, "Preview already running at %s\n", c.preview.url)
		return nil
	}
	listen := *addr
	if listen == "" {
		listen = defaultPreviewAddr
	}
	p, err := c.startPreview(listen)
	if err != nil {
		return err
	}
	c.preview = p
	fmt.Fprintf(c.out, "Preview running at %s\n", p.url)
	if !*noBrowser {
		if err := openBrowser(p.url); err != nil {
			fmt.Fprintf(c.out, "Could not open a browser: %v\n", err)
		}
	}
	if c.interactive {
		return nil
	}
	fmt.Fprintln(c.out, "Press Ctrl+C to stop.")
	select {
	case <-ctx.Done():
	case <-p.done:
	}
	return nil
}

// openBrowser tries to open the given URL in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default: // "linux", "freebsd", "openbsd", "netbsd"
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
