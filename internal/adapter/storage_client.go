// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/MKhiriev/go-sync15/internal/config"
	"github.com/MKhiriev/go-sync15/internal/logger"
	"github.com/MKhiriev/go-sync15/internal/metrics"
	"github.com/MKhiriev/go-sync15/internal/utils"
	"github.com/MKhiriev/go-sync15/models"
)

// Sync15StorageClientInit carries what is needed to reach a user's storage
// node through the token server.
type Sync15StorageClientInit struct {
	KeyID          string
	AccessToken    string
	TokenserverURL string
}

// Sync15StorageClient implements [StorageClient] and [BatchPoster] against a
// Sync 1.5 storage node. Every request is signed with a Hawk header built
// from the current token.
type Sync15StorageClient struct {
	http    *utils.HTTPClient
	tokens  *TokenProvider
	backoff *BackoffListener
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewStorageClient builds a client. No request is made until the first call.
func NewStorageClient(init Sync15StorageClientInit, cfg config.ClientAdapter,
	m *metrics.Metrics, log *logger.Logger) *Sync15StorageClient {
	httpClient := utils.NewHTTPClient().WithTimeout(cfg.RequestTimeout)
	return newStorageClient(
		httpClient,
		NewTokenProvider(init.TokenserverURL, init.AccessToken, init.KeyID, httpClient, m, log),
		m, log,
	)
}

func newStorageClient(httpClient *utils.HTTPClient, tokens *TokenProvider,
	m *metrics.Metrics, log *logger.Logger) *Sync15StorageClient {
	return &Sync15StorageClient{
		http:    httpClient,
		tokens:  tokens,
		backoff: NewBackoffListener(),
		metrics: m,
		log:     log,
	}
}

// Backoff returns the listener fed by every response of this client.
func (c *Sync15StorageClient) Backoff() *BackoffListener {
	return c.backoff
}

// HashedUID returns the hashed account uid from the current token.
func (c *Sync15StorageClient) HashedUID(ctx context.Context) (string, error) {
	return c.tokens.HashedUID(ctx)
}

func (c *Sync15StorageClient) storageURL(ctx context.Context, path string) (string, error) {
	endpoint, err := c.tokens.APIEndpoint(ctx)
	if err != nil {
		return "", err
	}
	if path == "" {
		return endpoint, nil
	}
	return endpoint + "/" + strings.TrimLeft(path, "/"), nil
}

type requestOptions struct {
	body              []byte
	ifUnmodifiedSince *models.ServerTimestamp
}

func execRequest[T any](ctx context.Context, c *Sync15StorageClient, method, rawURL, route string,
	opts requestOptions) (Response[T], error) {
	auth, err := c.tokens.Authorization(ctx, method, rawURL)
	if err != nil {
		return Response[T]{}, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", auth)
	if opts.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(opts.body)
	}
	if opts.ifUnmodifiedSince != nil {
		req.SetHeader("X-If-Unmodified-Since", opts.ifUnmodifiedSince.String())
	}

	c.log.Debug().Str("method", method).Str("route", route).Msg("storage request")
	resp, err := req.Execute(method, rawURL)
	if err != nil {
		c.metrics.ObserveRequest(method, 0)
		return Response[T]{}, &RequestError{Op: route, Err: err}
	}
	c.metrics.ObserveRequest(method, resp.StatusCode())
	return newResponse[T](resp.StatusCode(), resp.Header(), resp.Body(), route, c.backoff, c.log)
}

// FetchInfoConfiguration reads info/configuration.
func (c *Sync15StorageClient) FetchInfoConfiguration(ctx context.Context) (Response[models.InfoConfiguration], error) {
	u, err := c.storageURL(ctx, "info/configuration")
	if err != nil {
		return Response[models.InfoConfiguration]{}, err
	}
	return execRequest[models.InfoConfiguration](ctx, c, http.MethodGet, u, "info/configuration", requestOptions{})
}

// FetchInfoCollections reads info/collections.
func (c *Sync15StorageClient) FetchInfoCollections(ctx context.Context) (Response[models.InfoCollections], error) {
	u, err := c.storageURL(ctx, "info/collections")
	if err != nil {
		return Response[models.InfoCollections]{}, err
	}
	return execRequest[models.InfoCollections](ctx, c, http.MethodGet, u, "info/collections", requestOptions{})
}

// FetchMetaGlobal reads storage/meta/global and unwraps the BSO payload.
func (c *Sync15StorageClient) FetchMetaGlobal(ctx context.Context) (Response[models.MetaGlobalRecord], error) {
	const route = "storage/meta/global"
	u, err := c.storageURL(ctx, route)
	if err != nil {
		return Response[models.MetaGlobalRecord]{}, err
	}
	resp, err := execRequest[models.BsoRecord[models.MetaGlobalRecord]](ctx, c, http.MethodGet, u, route, requestOptions{})
	out := Response[models.MetaGlobalRecord]{
		Status:       resp.Status,
		Record:       resp.Record.Payload,
		LastModified: resp.LastModified,
		Route:        resp.Route,
		Err:          resp.Err,
	}
	return out, err
}

// FetchCryptoKeys reads the still-encrypted storage/crypto/keys record.
func (c *Sync15StorageClient) FetchCryptoKeys(ctx context.Context) (Response[models.EncryptedBso], error) {
	const route = "storage/crypto/keys"
	u, err := c.storageURL(ctx, route)
	if err != nil {
		return Response[models.EncryptedBso]{}, err
	}
	resp, err := execRequest[models.EncryptedBso](ctx, c, http.MethodGet, u, route, requestOptions{})
	resp.Record.Collection = "crypto"
	return resp, err
}

func (c *Sync15StorageClient) put(ctx context.Context, route string, bso any,
	xius models.ServerTimestamp) (models.ServerTimestamp, error) {
	u, err := c.storageURL(ctx, route)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(bso)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", route, err)
	}
	resp, err := execRequest[json.RawMessage](ctx, c, http.MethodPut, u, route,
		requestOptions{body: body, ifUnmodifiedSince: &xius})
	if err != nil {
		return 0, err
	}
	if !resp.IsSuccess() {
		return 0, resp.StorageError()
	}
	return resp.LastModified, nil
}

// PutMetaGlobal uploads meta/global unless it changed on the server after
// xius. It returns the new server timestamp.
func (c *Sync15StorageClient) PutMetaGlobal(ctx context.Context, xius models.ServerTimestamp,
	global models.MetaGlobalRecord) (models.ServerTimestamp, error) {
	bso := models.NewBsoRecord[models.MetaGlobalRecord]("global", "meta", global)
	return c.put(ctx, "storage/meta/global", bso, xius)
}

// PutCryptoKeys uploads an encrypted crypto/keys record.
func (c *Sync15StorageClient) PutCryptoKeys(ctx context.Context, xius models.ServerTimestamp,
	keys models.EncryptedBso) error {
	_, err := c.put(ctx, "storage/crypto/keys", keys, xius)
	return err
}

func (c *Sync15StorageClient) wipe(ctx context.Context, path, route string) error {
	u, err := c.storageURL(ctx, path)
	if err != nil {
		return err
	}
	resp, err := execRequest[json.RawMessage](ctx, c, http.MethodDelete, u, route, requestOptions{})
	if err != nil {
		return err
	}
	if resp.IsSuccess() || resp.Err.Kind == ErrorNotFound {
		return nil
	}
	return resp.StorageError()
}

// WipeAllRemote deletes everything the user has on the storage node.
func (c *Sync15StorageClient) WipeAllRemote(ctx context.Context) error {
	return c.wipe(ctx, "", "storage")
}

// WipeRemoteEngine deletes one collection. A missing collection is not an
// error.
func (c *Sync15StorageClient) WipeRemoteEngine(ctx context.Context, engine string) error {
	return c.wipe(ctx, "storage/"+engine, "storage/"+engine)
}

// GetEncryptedRecords runs a collection GET and tags every record with the
// collection it came from.
func (c *Sync15StorageClient) GetEncryptedRecords(ctx context.Context,
	req models.CollectionRequest) (Response[[]models.EncryptedBso], error) {
	base, err := c.storageURL(ctx, "")
	if err != nil {
		return Response[[]models.EncryptedBso]{}, err
	}
	u, err := req.BuildURL(base)
	if err != nil {
		return Response[[]models.EncryptedBso]{}, fmt.Errorf("%w: %v", ErrUnacceptableURL, err)
	}
	resp, err := execRequest[[]models.EncryptedBso](ctx, c, http.MethodGet, u, "storage/"+req.Collection, requestOptions{})
	for i := range resp.Record {
		resp.Record[i].Collection = req.Collection
	}
	return resp, err
}

// Post implements [BatchPoster].
func (c *Sync15StorageClient) Post(ctx context.Context, req models.CollectionRequest, body []byte,
	xius models.ServerTimestamp) (Response[UploadResult], error) {
	base, err := c.storageURL(ctx, "")
	if err != nil {
		return Response[UploadResult]{}, err
	}
	u, err := req.BuildURL(base)
	if err != nil {
		return Response[UploadResult]{}, fmt.Errorf("%w: %v", ErrUnacceptableURL, err)
	}
	return execRequest[UploadResult](ctx, c, http.MethodPost, u, "storage/"+req.Collection,
		requestOptions{body: body, ifUnmodifiedSince: &xius})
}

// NewPostQueue starts an upload to collection bounded by cfg.
func (c *Sync15StorageClient) NewPostQueue(collection string, cfg models.InfoConfiguration,
	xius models.ServerTimestamp, handler PostResponseHandler) *PostQueue {
	return NewPostQueue(c, collection, cfg, xius, handler, c.log)
}
