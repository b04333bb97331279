package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/dom"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/loader"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/client/pagectx"
	"github.com/Jason-purse/nextjs-blog-sub000/internal/infrastructure/logging"
)

// settleTicks is enough frames for every scheduled content-ready to fire
const settleTicks = 8

func main() {
	serverURL := flag.String("server", "http://localhost:8000", "Plugin server base URL")
	pagePath := flag.String("page", "-", "HTML page to render into (- for stdin)")
	route := flag.String("route", "/", "Route the page is served at")
	navigate := flag.String("navigate", "", "Route to navigate to after the first render")
	prefix := flag.String("prefix", "/blog/", "Content route prefix")
	dark := flag.Bool("dark", false, "Render with a dark color scheme")
	locale := flag.String("locale", "en", "Reader locale")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	dev := flag.Bool("dev", false, "Verbose console logging")
	flag.Parse()

	logger := logging.NewDefault()
	if *dev {
		logger = logging.NewDevelopment()
	}
	defer logger.Sync()

	if err := run(*serverURL, *pagePath, *route, *navigate, *prefix, *dark, *locale, *timeout, logger); err != nil {
		log.Fatalf("pluginrender: %v", err)
	}
}

func run(serverURL, pagePath, route, navigate, prefix string, dark bool, locale string, timeout time.Duration, logger *logging.Logger) error {
	page, err := openPage(pagePath)
	if err != nil {
		return err
	}
	defer page.Close()

	doc, err := dom.Parse(page)
	if err != nil {
		return fmt.Errorf("parsing page: %w", err)
	}

	scheme := pagectx.SchemeLight
	if dark {
		scheme = pagectx.SchemeDark
	}
	frames := loader.NewFrameQueue()
	l, err := loader.New(loader.Options{
		Source:        loader.NewHTTPSource(serverURL, timeout),
		Document:      doc,
		Frames:        frames,
		Platform:      pagectx.Platform{ColorScheme: scheme, Locale: locale},
		Path:          route,
		ContentPrefix: prefix,
		Logger:        logger.Component("loader"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := l.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initializing plugins: %w", err)
	}
	frames.Settle(settleTicks)

	if navigate != "" {
		if _, err := l.Navigate(navigate); err != nil {
			return fmt.Errorf("navigating to %s: %w", navigate, err)
		}
		frames.Settle(settleTicks)
	}

	failed := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		logger.Warn("plugin skipped", zap.String("plugin_id", id), zap.Error(report.Failed[id]))
	}
	logger.Info("render complete",
		zap.Strings("loaded", report.Loaded),
		zap.Strings("mounted", l.Mounted()),
		zap.Int("failed", len(failed)))

	html, err := doc.HTML()
	if err != nil {
		return fmt.Errorf("serializing page: %w", err)
	}
	_, err = io.WriteString(os.Stdout, html+"\n")
	return err
}

func openPage(p string) (io.ReadCloser, error) {
	if p == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	return f, nil
}
