// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianPlanner/services/planner/domain"
)

const domainPrefix = "planner/domain/"

// ErrDomainNotFound is returned when no domain is stored under a name.
var ErrDomainNotFound = errors.New("domain not found")

// Record is a stored domain document with its commit version.
type Record struct {
	Document domain.Document
	Version  uint64
}

// DomainStore persists named domain documents as YAML.
//
// Description:
//
//	Documents are validated before they are written, so everything read
//	back compiles unless the knowledge parser has since become stricter.
//	The key is the document name under a fixed prefix.
//
// Thread Safety: Safe for concurrent use.
type DomainStore struct {
	db *DB
}

// NewDomainStore creates a store over db.
func NewDomainStore(db *DB) *DomainStore {
	return &DomainStore{db: db}
}

// Put validates and stores doc under doc.Name, replacing any previous
// version.
//
// Outputs:
//   - uint64: The commit version of the new record.
//   - error: The validation error from doc.Validate, or a storage error.
func (s *DomainStore) Put(ctx context.Context, doc domain.Document) (uint64, error) {
	if err := doc.Validate(); err != nil {
		return 0, err
	}
	data, err := doc.Marshal()
	if err != nil {
		return 0, fmt.Errorf("marshal domain %s: %w", doc.Name, err)
	}

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(domainKey(doc.Name), data)
	})
	if err != nil {
		return 0, fmt.Errorf("store domain %s: %w", doc.Name, err)
	}

	record, err := s.Get(ctx, doc.Name)
	if err != nil {
		return 0, err
	}
	return record.Version, nil
}

// Get loads the domain stored under name.
func (s *DomainStore) Get(ctx context.Context, name string) (Record, error) {
	var record Record
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(domainKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrDomainNotFound, name)
		}
		if err != nil {
			return err
		}
		record, err = decode(item)
		return err
	})
	return record, err
}

// List returns the names of every stored domain in key order.
func (s *DomainStore) List(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(domainPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), domainPrefix))
		}
		return nil
	})
	return names, err
}

// Delete removes the domain stored under name.
func (s *DomainStore) Delete(ctx context.Context, name string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(domainKey(name)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrDomainNotFound, name)
		} else if err != nil {
			return err
		}
		return txn.Delete(domainKey(name))
	})
}

func decode(item *badger.Item) (Record, error) {
	var record Record
	err := item.Value(func(val []byte) error {
		doc, err := domain.Parse(val)
		if err != nil {
			return err
		}
		record.Document = doc
		return nil
	})
	record.Version = item.Version()
	return record, err
}

func domainKey(name string) []byte {
	return []byte(domainPrefix + name)
}
