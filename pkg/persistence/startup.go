package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/logging"
)

// StartupOptions selects where the initial store content comes from.
type StartupOptions struct {
	// LoadPath is an explicit document to load. It wins over Resume.
	LoadPath string
	// Resume loads the last automatic snapshot if there is one.
	Resume bool
}

// Source records which startup path produced the initial state.
type Source string

// Startup sources.
const (
	SourceEmpty    Source = "empty"
	SourceFile     Source = "file"
	SourceSnapshot Source = "snapshot"
)

// Initial is the result of Bootstrap.
type Initial struct {
	Collections entity.Collections
	Source      Source
	Origin      string
}

// Bootstrap resolves the initial store content:
//
//  1. With LoadPath set, the file must exist (ErrNotFound otherwise) and is loaded.
//  2. Otherwise with Resume set, the backend snapshot is loaded if present;
//     a missing snapshot logs a warning and yields an empty store.
//  3. Otherwise the store starts empty.
//
// Malformed documents are always an error.
func Bootstrap(ctx context.Context, opts StartupOptions, backend Backend, log *slog.Logger) (Initial, error) {
	if log == nil {
		log = logging.Nop()
	}

	if opts.LoadPath != "" {
		c, err := ReadSnapshot(opts.LoadPath)
		if err != nil {
			return Initial{}, fmt.Errorf("load %s: %w", opts.LoadPath, err)
		}
		log.Info("loaded knowledge base", "path", opts.LoadPath, "records", c.State().Len())
		return Initial{Collections: c, Source: SourceFile, Origin: opts.LoadPath}, nil
	}

	if opts.Resume {
		if backend == nil {
			log.Warn("resume requested but no snapshot backend is configured, starting empty")
			return emptyStart(), nil
		}
		c, err := backend.Read(ctx)
		switch {
		case errors.Is(err, ErrNotFound):
			log.Warn("no snapshot to resume from, starting empty", "backend", backend.String())
			return emptyStart(), nil
		case err != nil:
			return Initial{}, fmt.Errorf("resume from %s: %w", backend, err)
		}
		log.Info("resumed knowledge base", "backend", backend.String(), "records", c.State().Len())
		return Initial{Collections: c, Source: SourceSnapshot, Origin: backend.String()}, nil
	}

	return emptyStart(), nil
}

func emptyStart() Initial {
	return Initial{Collections: entity.NewCollections(), Source: SourceEmpty}
}
