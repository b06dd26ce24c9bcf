// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

// Package index implements the secondary-index engine: a per-index writer
// pipeline that buffers and commits documents into a durable inverted index,
// a searcher holder that publishes read-only snapshots of that index, and a
// query operation that turns a parsed query into paginated, projected,
// highlighted results.
//
// The engine treats the document store, the HTTP façade, and the map/reduce
// scheduler as external collaborators: it is handed batches of Entry
// values to write and Query values to answer, and never reaches back into
// the document store itself.
package index
