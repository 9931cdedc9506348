/*
DESCRIPTION
  series.go discovers the sibling files of a vendor file series sharing
  one base name and a delimiter-separated index suffix, and can wait on
  a still-being-acquired series to go quiet before returning it, using
  fsnotify.

AUTHORS
  Imaging Pipeline Team <imaging@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package series discovers and, optionally, waits on a file series: a
// run of sibling files sharing one base name and a delimiter-separated
// numeric index, the additional-inputs shape a live acquisition writes.
package series

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Discover returns the sorted list of sibling files in primary's
// directory whose name is base+delimiter+index+ext, for every index
// present, including primary itself. primary need not be the first
// index in the series.
func Discover(primary, delimiter string) ([]string, error) {
	dir := filepath.Dir(primary)
	base, ext, _, ok := split(filepath.Base(primary), delimiter)
	if !ok {
		return []string{primary}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("series: read dir: %w", err)
	}

	type member struct {
		index int
		path  string
	}
	var members []member
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		b, x, idx, ok := split(e.Name(), delimiter)
		if !ok || b != base || x != ext {
			continue
		}
		members = append(members, member{index: idx, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].index < members[j].index })

	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.path
	}
	return out, nil
}

// split parses name as base+delimiter+index+ext, returning the base,
// the extension (including its leading dot), the parsed index, and
// whether name matched the pattern.
func split(name, delimiter string) (base, ext string, index int, ok bool) {
	ext = filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	i := strings.LastIndex(stem, delimiter)
	if i < 0 {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(stem[i+len(delimiter):])
	if err != nil {
		return "", "", 0, false
	}
	return stem[:i], ext, n, true
}

// Watch blocks until quiet elapses with no filesystem event in primary's
// directory, then returns Discover's result. It is used when conversion
// starts while acquisition may still be appending files to the series.
// ctx cancellation or a watcher setup failure returns immediately.
func Watch(ctx context.Context, primary, delimiter string, quiet time.Duration) ([]string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("series: new watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(primary)
	if err := w.Add(dir); err != nil {
		return nil, fmt.Errorf("series: watch %s: %w", dir, err)
	}

	timer := time.NewTimer(quiet)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case err := <-w.Errors:
			return nil, fmt.Errorf("series: watcher: %w", err)
		case <-w.Events:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(quiet)
		case <-timer.C:
			return Discover(primary, delimiter)
		}
	}
}
