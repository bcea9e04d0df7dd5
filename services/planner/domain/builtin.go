// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package domain

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed examples/*.yaml
var examples embed.FS

// ErrUnknownExample is returned for a name with no bundled document.
var ErrUnknownExample = errors.New("unknown example domain")

// Example returns a bundled document by name: "blocks", "sussman" or
// "impossible".
func Example(name string) (Document, error) {
	data, err := examples.ReadFile(path.Join("examples", name+".yaml"))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownExample, name)
	}
	return Parse(data)
}

// MustExample is like Example but panics on error.
func MustExample(name string) Document {
	d, err := Example(name)
	if err != nil {
		panic(err)
	}
	return d
}

// ExampleNames lists the bundled documents, sorted.
func ExampleNames() []string {
	entries, err := examples.ReadDir("examples")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}
