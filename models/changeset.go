package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// IncomingRecord is one decrypted record together with the server time it
// was last modified.
type IncomingRecord struct {
	Payload   Payload
	Timestamp ServerTimestamp
}

// IncomingChangeset is what a collection fetch produced.
type IncomingChangeset struct {
	Changes    []IncomingRecord
	Timestamp  ServerTimestamp
	Collection string
}

// NewIncomingChangeset returns an empty changeset for collection.
func NewIncomingChangeset(collection string, ts ServerTimestamp) IncomingChangeset {
	return IncomingChangeset{Collection: collection, Timestamp: ts}
}

// OutgoingChangeset holds the records a store wants uploaded. Timestamp is
// used as the X-If-Unmodified-Since precondition for the upload.
type OutgoingChangeset struct {
	Changes    []Payload
	Timestamp  ServerTimestamp
	Collection string
}

// NewOutgoingChangeset returns an empty changeset for collection.
func NewOutgoingChangeset(collection string, ts ServerTimestamp) OutgoingChangeset {
	return OutgoingChangeset{Collection: collection, Timestamp: ts}
}

// RequestOrder is the sort order of a collection GET.
type RequestOrder string

const (
	OrderOldest RequestOrder = "oldest"
	OrderNewest RequestOrder = "newest"
	OrderIndex  RequestOrder = "index"
)

// CollectionRequest describes a GET or POST against storage/<collection>.
type CollectionRequest struct {
	Collection string
	Full       bool
	IDs        []Guid
	Limit      int
	Older      *ServerTimestamp
	Newer      *ServerTimestamp
	Order      RequestOrder
	Commit     bool
	Batch      *string
}

// NewCollectionRequest starts a request for collection with no options.
func NewCollectionRequest(collection string) CollectionRequest {
	return CollectionRequest{Collection: collection}
}

func (r CollectionRequest) WithFull() CollectionRequest {
	r.Full = true
	return r
}

func (r CollectionRequest) WithIDs(ids ...Guid) CollectionRequest {
	r.IDs = append([]Guid(nil), ids...)
	return r
}

func (r CollectionRequest) WithLimit(n int) CollectionRequest {
	r.Limit = n
	return r
}

func (r CollectionRequest) NewerThan(ts ServerTimestamp) CollectionRequest {
	r.Newer = &ts
	return r
}

func (r CollectionRequest) OlderThan(ts ServerTimestamp) CollectionRequest {
	r.Older = &ts
	return r
}

func (r CollectionRequest) SortBy(o RequestOrder) CollectionRequest {
	r.Order = o
	return r
}

func (r CollectionRequest) WithBatch(batch *string) CollectionRequest {
	r.Batch = batch
	return r
}

func (r CollectionRequest) WithCommit(commit bool) CollectionRequest {
	r.Commit = commit
	return r
}

// BuildURL appends storage/<collection> and the query to base. Parameters
// are written in a fixed order so the result is stable.
func (r CollectionRequest) BuildURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("storage base url %q is not usable", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/storage/" + url.PathEscape(r.Collection)

	var parts []string
	add := func(k, v string) {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
	}
	if r.Full {
		add("full", "1")
	}
	if r.Limit > 0 {
		add("limit", strconv.Itoa(r.Limit))
	}
	if r.IDs != nil {
		ids := make([]string, len(r.IDs))
		for i, id := range r.IDs {
			ids[i] = string(id)
		}
		add("ids", strings.Join(ids, ","))
	}
	if r.Batch != nil {
		add("batch", *r.Batch)
	}
	if r.Commit {
		add("commit", "true")
	}
	if r.Older != nil {
		add("older", r.Older.String())
	}
	if r.Newer != nil {
		add("newer", r.Newer.String())
	}
	if r.Order != "" {
		add("sort", string(r.Order))
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String(), nil
}
