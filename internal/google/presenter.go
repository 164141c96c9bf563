package google

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// URLPresenter shows the consent URL to the user.
type URLPresenter interface {
	PresentURL(ctx context.Context, url string) error
}

// PresenterFunc adapts a function to URLPresenter.
type PresenterFunc func(ctx context.Context, url string) error

// PresentURL calls f.
func (f PresenterFunc) PresentURL(ctx context.Context, url string) error {
	return f(ctx, url)
}

// WriterPresenter prints the consent URL.
type WriterPresenter struct {
	W io.Writer
}

// PresentURL writes instructions and the URL to W.
func (p WriterPresenter) PresentURL(_ context.Context, url string) error {
	_, err := fmt.Fprintf(p.W, "Open the following URL in your browser to authorize talendar:\n\n  %s\n\n", url)
	return err
}

// BrowserPresenter tries to open the consent URL in the default browser and
// always prints it, so headless sessions can copy it.
type BrowserPresenter struct {
	W io.Writer

	// Open overrides the browser launcher. Nil uses the OS opener.
	Open func(ctx context.Context, url string) error
}

// PresentURL prints the URL and launches the browser. A browser that fails
// to start is not an error; the printed URL still works.
func (p BrowserPresenter) PresentURL(ctx context.Context, url string) error {
	if err := (WriterPresenter{W: p.W}).PresentURL(ctx, url); err != nil {
		return err
	}
	open := p.Open
	if open == nil {
		open = openBrowser
	}
	if err := open(ctx, url); err != nil {
		_, _ = fmt.Fprintf(p.W, "Could not open a browser (%v); copy the URL above instead.\n", err)
	}
	return nil
}

func openBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	return cmd.Start()
}
