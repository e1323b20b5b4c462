package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/getmockd/kbase/pkg/api/types"
	"github.com/getmockd/kbase/pkg/cli/internal/output"
	"github.com/getmockd/kbase/pkg/entity"
	"github.com/getmockd/kbase/pkg/persistence"
)

// recordFlags collects records given on the command line.
type recordFlags struct {
	locations  []string
	viewpoints []string
	objects    []string
	persons    []string

	parent     string
	defaultLoc string
	category   string
	attrs      []string
}

// batchFromFile reads a snapshot document as a batch.
func batchFromFile(path string) (entity.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Batch{}, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := persistence.Decode(data)
	if err != nil {
		return entity.Batch{}, fmt.Errorf("%s: %w", path, err)
	}
	return c.State(), nil
}

// parseAttrs parses key=value pairs.
func parseAttrs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid attribute %q (want key=value)", p)
		}
		attrs[k] = strings.TrimSpace(v)
	}
	return attrs, nil
}

// saveBatch builds a save batch from an optional document and the record
// flags. Flag records are appended after the document's.
func saveBatch(args []string, f *recordFlags) (entity.Batch, error) {
	var batch entity.Batch
	if len(args) > 0 {
		b, err := batchFromFile(args[0])
		if err != nil {
			return batch, err
		}
		batch = b
	}

	attrs, err := parseAttrs(f.attrs)
	if err != nil {
		return batch, err
	}
	if len(f.viewpoints) > 0 && f.parent == "" {
		return batch, errors.New("--viewpoint requires --parent")
	}
	if len(f.objects) > 0 && f.defaultLoc == "" {
		return batch, errors.New("--object requires --default-loc")
	}

	for _, name := range f.locations {
		batch.Locations = append(batch.Locations, entity.Location{Name: name, Attributes: attrs})
	}
	for _, name := range f.viewpoints {
		batch.Viewpoints = append(batch.Viewpoints, entity.Viewpoint{Name: name, Parent: f.parent})
	}
	for _, name := range f.objects {
		batch.Objects = append(batch.Objects, entity.Object{
			Name:       name,
			DefaultLoc: f.defaultLoc,
			Category:   f.category,
			Attributes: attrs,
		})
	}
	for _, name := range f.persons {
		batch.Persons = append(batch.Persons, entity.Person{Name: name, Attributes: attrs})
	}

	if batch.Empty() {
		return batch, errors.New("nothing to save: pass a document or record flags")
	}
	return batch.Clone(), nil
}

// deleteBatch builds a delete batch. Only names matter.
func deleteBatch(args []string, f *recordFlags) (entity.Batch, error) {
	var batch entity.Batch
	if len(args) > 0 {
		b, err := batchFromFile(args[0])
		if err != nil {
			return batch, err
		}
		batch = b
	}
	for _, name := range f.locations {
		batch.Locations = append(batch.Locations, entity.Location{Name: name})
	}
	for _, name := range f.viewpoints {
		batch.Viewpoints = append(batch.Viewpoints, entity.Viewpoint{Name: name})
	}
	for _, name := range f.objects {
		batch.Objects = append(batch.Objects, entity.Object{Name: name})
	}
	for _, name := range f.persons {
		batch.Persons = append(batch.Persons, entity.Person{Name: name})
	}
	if batch.Empty() {
		return batch, errors.New("nothing to delete: pass a document or name flags")
	}
	return batch, nil
}

// reportStatus prints a call outcome. A non-OK status becomes an ExitError
// carrying the status exit code.
func reportStatus(resp types.StatusResponse) error {
	for _, w := range resp.Warnings {
		output.Warn("%s", w)
	}
	if jsonOutput {
		if err := output.JSON(resp); err != nil {
			return err
		}
	} else {
		output.Printf("%s\n", resp.Status)
	}

	if resp.Code == int(types.StatusOK) {
		return nil
	}
	msg := resp.Status
	if resp.Message != "" {
		msg += ": " + resp.Message
	}
	return &ExitError{Code: resp.Code, Err: errors.New(msg)}
}

// withClient runs fn with a client for via.
func withClient(ctx context.Context, via string, fn func(context.Context, KBaseClient) error) error {
	client, err := newClient(via)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(ctx, client)
}
